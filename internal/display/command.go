package display

import (
	"errors"
	"fmt"

	"github.com/satindergrewal/soundscape/internal/life"
	"github.com/satindergrewal/soundscape/internal/palette"
)

var (
	// ErrUnknownCommand is returned for an op the driver does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBusy means the command queue is full; the caller may retry.
	ErrBusy = errors.New("command queue full")
)

// Command ops.
const (
	OpRandomize = "randomize"
	OpClear     = "clear"
	OpScheme    = "scheme"
	OpBoundary  = "boundary"
	OpCell      = "cell"
	OpPause     = "pause"
	OpResume    = "resume"
	OpStep      = "step" // one generation, even while paused
)

// Command is a user action from a viewer or the HTTP API. It is applied on
// the driver goroutine between ticks.
type Command struct {
	Op       string   `json:"op"`
	Scheme   string   `json:"scheme,omitempty"`
	Boundary string   `json:"boundary,omitempty"`
	X        int      `json:"x,omitempty"`
	Y        int      `json:"y,omitempty"`
	Alive    bool     `json:"alive,omitempty"`
	Density  *float32 `json:"density,omitempty"` // randomize only; defaults to the seed density
}

// Validate checks the op and its arguments.
func (c Command) Validate() error {
	switch c.Op {
	case OpClear, OpPause, OpResume, OpStep, OpCell:
		return nil
	case OpRandomize:
		if c.Density != nil && (*c.Density < 0 || *c.Density > 1) {
			return fmt.Errorf("density %v outside [0, 1]", *c.Density)
		}
		return nil
	case OpScheme:
		_, err := palette.ParseScheme(c.Scheme)
		return err
	case OpBoundary:
		_, err := life.ParseBoundary(c.Boundary)
		return err
	}
	return fmt.Errorf("%w %q", ErrUnknownCommand, c.Op)
}
