// Package spectrum turns blocks of audio samples into per-band energy
// measurements and hands them to the simulation through a latest-wins feed.
package spectrum

import "math"

// Frame is one analysis result. It is a plain value: copy it, never share it.
type Frame struct {
	Bass    float32 `json:"bass"`
	Mid     float32 `json:"mid"`
	Treble  float32 `json:"treble"`
	Peak    float32 `json:"peak_hz"` // frequency of the strongest bin, unscaled
	Overall float32 `json:"overall"` // bass+mid+treble, scaled by sensitivity
}

// Synthetic returns a slowly cycling frame for running without audio.
// The three bands oscillate at different rates so every rule branch is hit.
func Synthetic(t float64) Frame {
	bass := float32(math.Sin(t*2)*0.5 + 0.5)
	mid := float32(math.Sin(t*3)*0.5 + 0.5)
	treble := float32(math.Sin(t*5)*0.5 + 0.5)
	return Frame{
		Bass:    bass,
		Mid:     mid,
		Treble:  treble,
		Peak:    440,
		Overall: (bass + mid + treble) / 3,
	}
}
