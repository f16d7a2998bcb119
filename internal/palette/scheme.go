package palette

import (
	"fmt"
	"strings"
)

// Scheme selects how cell ages and audio energy map to colors.
type Scheme int

const (
	// Classic draws live cells white on black.
	Classic Scheme = iota
	// Heat ramps from blue for young cells to red for old ones.
	Heat
	// Rainbow walks the hue wheel with age.
	Rainbow
	// Pulse tints cells with the current band energies.
	Pulse
)

var schemeNames = [...]string{"classic", "heat", "rainbow", "pulse"}

// Schemes lists every scheme in declaration order.
func Schemes() []Scheme {
	return []Scheme{Classic, Heat, Rainbow, Pulse}
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return fmt.Sprintf("scheme(%d)", int(s))
	}
	return schemeNames[s]
}

// ParseScheme accepts a scheme name, case-insensitively.
func ParseScheme(name string) (Scheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range schemeNames {
		if n == name {
			return Scheme(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color scheme %q", name)
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(text []byte) error {
	v, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
