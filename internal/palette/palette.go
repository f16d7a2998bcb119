// Package palette turns cell ages and audio energy into colors.
package palette

import (
	"image/color"
	"math"

	"github.com/satindergrewal/soundscape/internal/spectrum"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// Palette holds the active scheme and the most recent audio frame. It is
// owned by the render loop and is not safe for concurrent use.
type Palette struct {
	scheme  Scheme
	elapsed float32
	frame   spectrum.Frame
	heard   bool
}

// New returns a palette that has not seen any audio yet.
func New(scheme Scheme) *Palette {
	return &Palette{scheme: scheme}
}

// Scheme returns the active scheme.
func (p *Palette) Scheme() Scheme { return p.scheme }

// SetScheme switches schemes. The last audio frame is kept.
func (p *Palette) SetScheme(s Scheme) { p.scheme = s }

// Elapsed is the total dt passed to Update, in seconds.
func (p *Palette) Elapsed() float32 { return p.elapsed }

// Update records frame (if non-nil) and advances the palette clock.
func (p *Palette) Update(frame *spectrum.Frame, dt float32) {
	if frame != nil {
		p.frame = *frame
		p.heard = true
	}
	p.elapsed += dt
}

// CellColor colors a cell of the given age. Age 0 is a dead cell and is
// always black. maxAge 0 is treated as the full uint8 range.
func (p *Palette) CellColor(age, maxAge uint8) color.RGBA {
	if age == 0 {
		return black
	}
	if maxAge == 0 {
		maxAge = math.MaxUint8
	}
	t := min(float32(age)/float32(maxAge), 1)

	switch p.scheme {
	case Heat:
		return color.RGBA{
			R: toByte(t * 255),
			G: toByte((1 - t) * 255 * t),
			B: toByte((1 - t) * 255),
			A: 255,
		}
	case Rainbow:
		return rainbow(t)
	case Pulse:
		if !p.heard {
			return white
		}
		return color.RGBA{
			R: toByte(clamp01(p.frame.Bass) * 255 * t),
			G: toByte(clamp01(p.frame.Mid) * 255 * t),
			B: toByte(clamp01(p.frame.Treble) * 255 * t),
			A: 255,
		}
	default:
		return white
	}
}

// rainbow splits the hue wheel into six linear sectors.
func rainbow(t float32) color.RGBA {
	hue := t * 6
	sector := float32(math.Floor(float64(hue)))
	up := toByte(255 * (hue - sector))
	down := toByte(255 * (1 - (hue - sector)))

	switch int(sector) % 6 {
	case 0:
		return color.RGBA{255, up, 0, 255}
	case 1:
		return color.RGBA{down, 255, 0, 255}
	case 2:
		return color.RGBA{0, 255, up, 255}
	case 3:
		return color.RGBA{0, down, 255, 255}
	case 4:
		return color.RGBA{up, 0, 255, 255}
	default:
		return color.RGBA{255, 0, down, 255}
	}
}

// Background is the color behind the cells. Pulse brightens it slightly
// with overall energy, capped so it stays dark.
func (p *Palette) Background() color.RGBA {
	switch p.scheme {
	case Heat:
		return color.RGBA{0, 0, 20, 255}
	case Pulse:
		if !p.heard {
			return black
		}
		v := toByte(min(p.frame.Overall*0.2*30, 30))
		return color.RGBA{v, v, v, 255}
	default:
		return black
	}
}

// toByte truncates like a saturating float-to-u8 cast; NaN becomes 0.
func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return min(v, 1)
}
