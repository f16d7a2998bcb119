package life

import (
	"fmt"
	"strings"
)

// Boundary decides what a neighbor lookup outside the grid sees.
type Boundary int

const (
	// Wrap makes the grid toroidal.
	Wrap Boundary = iota
	// Dead treats everything outside as dead.
	Dead
	// Alive treats everything outside as alive.
	Alive
)

func (b Boundary) String() string {
	switch b {
	case Wrap:
		return "wrap"
	case Dead:
		return "dead"
	case Alive:
		return "alive"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// ParseBoundary accepts "wrap", "dead" or "alive", case-insensitively.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wrap":
		return Wrap, nil
	case "dead":
		return Dead, nil
	case "alive":
		return Alive, nil
	}
	return 0, fmt.Errorf("unknown boundary %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the YAML config.
func (b *Boundary) UnmarshalText(text []byte) error {
	v, err := ParseBoundary(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
