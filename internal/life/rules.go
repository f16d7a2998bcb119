package life

import "fmt"

// Policy decides a cell's next state from its current state and the number
// of live Moore neighbors (0..8). The set of policies is closed: Standard and
// AudioDriven are the only implementations.
type Policy interface {
	Apply(alive bool, neighbors int) bool
	// MutationChance is the per-cell probability of flipping the state the
	// rule produced, in [0, 1].
	MutationChance() float32

	sealed()
}

// Standard is Conway's B3/S23.
type Standard struct{}

func (Standard) Apply(alive bool, neighbors int) bool {
	if alive {
		return neighbors == 2 || neighbors == 3
	}
	return neighbors == 3
}

func (Standard) MutationChance() float32 { return 0 }

func (Standard) sealed() {}

// AudioDriven bends the birth and survival thresholds with band energies
// captured when the policy is built. Loud bass makes births easier, quiet
// mids tighten survival and treble injects random flips.
type AudioDriven struct {
	bass, mid, treble float32
}

// NewAudioDriven clamps each energy to [0, 1].
func NewAudioDriven(bass, mid, treble float32) AudioDriven {
	return AudioDriven{
		bass:   clamp01(bass),
		mid:    clamp01(mid),
		treble: clamp01(treble),
	}
}

// BirthThreshold is the exact neighbor count that brings a dead cell alive.
func (p AudioDriven) BirthThreshold() int {
	if p.bass > 0.8 {
		return 2
	}
	return 3
}

// SurvivalRange is the inclusive neighbor range that keeps a cell alive.
func (p AudioDriven) SurvivalRange() (lower, upper int) {
	switch {
	case p.mid > 0.7:
		return 2, 4
	case p.mid > 0.4:
		return 2, 3
	default:
		return 2, 2
	}
}

func (p AudioDriven) Apply(alive bool, neighbors int) bool {
	if alive {
		lo, hi := p.SurvivalRange()
		return neighbors >= lo && neighbors <= hi
	}
	return neighbors == p.BirthThreshold()
}

// MutationChance peaks at 5% for full treble.
func (p AudioDriven) MutationChance() float32 {
	return p.treble * 0.05
}

// Energies returns the clamped band energies the policy was built from.
func (p AudioDriven) Energies() (bass, mid, treble float32) {
	return p.bass, p.mid, p.treble
}

func (AudioDriven) sealed() {}

// PolicyName describes p for status output.
func PolicyName(p Policy) string {
	switch v := p.(type) {
	case Standard:
		return "standard"
	case AudioDriven:
		lo, hi := v.SurvivalRange()
		return fmt.Sprintf("audio B%d/S%d-%d", v.BirthThreshold(), lo, hi)
	default:
		return "unknown"
	}
}

func clamp01(v float32) float32 {
	// NaN compares false both ways and would otherwise survive.
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
