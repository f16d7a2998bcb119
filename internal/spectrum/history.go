package spectrum

import (
	"context"
	"log"
)

// History keeps the most recent n mono samples so every incoming PCM frame
// can be analyzed against a full transform-sized block.
type History struct {
	ring []float32
	out  []float32
	pos  int
}

// NewHistory creates a zero-filled window of n samples.
func NewHistory(n int) *History {
	return &History{
		ring: make([]float32, n),
		out:  make([]float32, n),
	}
}

// Write appends samples, overwriting the oldest ones.
func (h *History) Write(samples []float32) {
	n := len(h.ring)
	if len(samples) >= n {
		copy(h.ring, samples[len(samples)-n:])
		h.pos = 0
		return
	}
	for _, s := range samples {
		h.ring[h.pos] = s
		h.pos++
		if h.pos == n {
			h.pos = 0
		}
	}
}

// Samples returns the window oldest-first. The slice is reused by the next
// call.
func (h *History) Samples() []float32 {
	k := copy(h.out, h.ring[h.pos:])
	copy(h.out[k:], h.ring[:h.pos])
	return h.out
}

// Mixdown averages interleaved int16 PCM into mono float32 in [-1, 1),
// appending to dst.
func Mixdown(pcm []int16, channels int, dst []float32) []float32 {
	if channels < 1 {
		channels = 1
	}
	scale := 1 / (32768 * float32(channels))
	for i := 0; i+channels <= len(pcm); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(pcm[i+c])
		}
		dst = append(dst, sum*scale)
	}
	return dst
}

// Consume analyzes a PCM stream until ctx is cancelled or pcm is closed.
// Each incoming frame slides the analysis window forward and yields one
// Process call.
func (a *Analyzer) Consume(ctx context.Context, pcm <-chan []int16, channels int) {
	hist := NewHistory(a.cfg.Size)
	mono := make([]float32, 0, a.cfg.Size)

	log.Printf("Analyzer running (N=%d, bin width %.2f Hz)", a.cfg.Size, a.binWidth)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-pcm:
			if !ok {
				return
			}
			mono = Mixdown(frame, channels, mono[:0])
			hist.Write(mono)
			a.Process(hist.Samples())
		}
	}
}
