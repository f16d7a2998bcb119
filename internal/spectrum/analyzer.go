package spectrum

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is the kind of every construction failure in this package.
	ErrInvalidConfig = errors.New("spectrum: invalid configuration")
	// ErrInvalidSize reports a transform size that is not a power of two >= 2.
	ErrInvalidSize = fmt.Errorf("%w: transform size must be a power of two", ErrInvalidConfig)
)

// Band is a [Low, High) frequency range in Hz.
type Band struct {
	Low  float32 `yaml:"low"`
	High float32 `yaml:"high"`
}

// Config describes one analyzer instance.
type Config struct {
	SampleRate  int
	Size        int // transform size N, power of two
	Bass        Band
	Mid         Band
	Treble      Band
	Sensitivity float32
}

type binRange struct {
	start, end int
}

// Analyzer runs a windowed FFT over sample blocks and reduces the spectrum
// to three band energies plus the peak frequency. It owns its scratch
// buffers, so a single goroutine must drive it.
type Analyzer struct {
	cfg      Config
	fft      *fft
	window   []float32
	buf      []complex64
	binWidth float32

	bass, mid, treble binRange

	feed *Feed
}

// NewAnalyzer validates cfg and allocates everything Process needs.
// feed may be nil, in which case frames are only returned.
func NewAnalyzer(cfg Config, feed *Feed) (*Analyzer, error) {
	t, err := newFFT(cfg.Size)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, cfg.SampleRate)
	}
	if cfg.Sensitivity < 0 {
		return nil, fmt.Errorf("%w: negative sensitivity %v", ErrInvalidConfig, cfg.Sensitivity)
	}
	bands := []struct {
		name string
		band Band
	}{{"bass", cfg.Bass}, {"mid", cfg.Mid}, {"treble", cfg.Treble}}
	for _, b := range bands {
		if b.band.Low < 0 || b.band.Low >= b.band.High {
			return nil, fmt.Errorf("%w: %s band [%v, %v)", ErrInvalidConfig, b.name, b.band.Low, b.band.High)
		}
	}

	n := cfg.Size
	a := &Analyzer{
		cfg:      cfg,
		fft:      t,
		window:   make([]float32, n),
		buf:      make([]complex64, n),
		binWidth: float32(cfg.SampleRate) / float32(n),
		feed:     feed,
	}
	for i := range a.window {
		phase := 2 * math.Pi * float32(i) / float32(n)
		a.window[i] = 0.5 * (1 - float32(math.Cos(float64(phase))))
	}
	a.bass = a.bins(cfg.Bass)
	a.mid = a.bins(cfg.Mid)
	a.treble = a.bins(cfg.Treble)
	return a, nil
}

// Size returns the transform size.
func (a *Analyzer) Size() int {
	return a.cfg.Size
}

// BinWidth returns the frequency span of one output bin in Hz.
func (a *Analyzer) BinWidth() float32 {
	return a.binWidth
}

// bins maps a band to its bin range. The DC bin is never included and the
// range never extends past the Nyquist bin.
func (a *Analyzer) bins(b Band) binRange {
	half := a.cfg.Size / 2
	clamp := func(freq float32) int {
		k := int(freq / a.binWidth)
		if k < 1 {
			return 1
		}
		if k > half {
			return half
		}
		return k
	}
	return binRange{start: clamp(b.Low), end: clamp(b.High)}
}

// Process analyzes one block. Samples beyond the transform size are ignored
// and a short block is zero-padded. The frame is also offered to the feed;
// a full feed never blocks the caller.
func (a *Analyzer) Process(samples []float32) Frame {
	n := a.cfg.Size
	m := min(n, len(samples))
	for i := 0; i < m; i++ {
		a.buf[i] = complex(samples[i]*a.window[i], 0)
	}
	for i := m; i < n; i++ {
		a.buf[i] = 0
	}

	a.fft.forward(a.buf)

	bass := a.bandEnergy(a.bass)
	mid := a.bandEnergy(a.mid)
	treble := a.bandEnergy(a.treble)

	// Comparing |X|² picks the same bin as comparing |X|.
	peakBin := 0
	var peakPower float32
	for k := 1; k < n/2; k++ {
		if p := norm(a.buf[k]); p > peakPower {
			peakPower = p
			peakBin = k
		}
	}

	s := a.cfg.Sensitivity
	frame := Frame{
		Bass:    bass * s,
		Mid:     mid * s,
		Treble:  treble * s,
		Peak:    float32(peakBin) * a.binWidth,
		Overall: (bass + mid + treble) * s,
	}

	framesAnalyzed.Inc()
	if a.feed != nil {
		a.feed.Send(frame)
	}
	return frame
}

// bandEnergy is the root of the mean squared magnitude over r.
func (a *Analyzer) bandEnergy(r binRange) float32 {
	if r.end <= r.start {
		return 0
	}
	var sum float32
	for k := r.start; k < r.end; k++ {
		sum += norm(a.buf[k])
	}
	sum /= float32(r.end - r.start)
	return float32(math.Sqrt(float64(sum)))
}
