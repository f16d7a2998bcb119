package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SampleRate:  48000,
		Size:        2048,
		Bass:        Band{Low: 20, High: 250},
		Mid:         Band{Low: 250, High: 2000},
		Treble:      Band{Low: 2000, High: 20000},
		Sensitivity: 1,
	}
}

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return out
}

func TestNewAnalyzerRejectsBadSize(t *testing.T) {
	for _, size := range []int{-4, 0, 1, 3, 1000, 2047} {
		cfg := testConfig()
		cfg.Size = size
		_, err := NewAnalyzer(cfg, nil)
		require.Error(t, err, "size %d", size)
		assert.True(t, errors.Is(err, ErrInvalidSize), "size %d: %v", size, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "size %d: %v", size, err)
	}
}

func TestNewAnalyzerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative sensitivity", func(c *Config) { c.Sensitivity = -1 }},
		{"inverted bass", func(c *Config) { c.Bass = Band{Low: 250, High: 20} }},
		{"empty mid", func(c *Config) { c.Mid = Band{Low: 500, High: 500} }},
		{"negative treble", func(c *Config) { c.Treble = Band{Low: -10, High: 100} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg, nil)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBinMapping(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, float32(23.4375), a.BinWidth())
	// 20 Hz floors to bin 0, which is clamped away from DC.
	assert.Equal(t, binRange{start: 1, end: 10}, a.bass)
	assert.Equal(t, binRange{start: 10, end: 85}, a.mid)
	// 20 kHz lands below Nyquist at 48 kHz.
	assert.Equal(t, binRange{start: 85, end: 853}, a.treble)

	cfg := testConfig()
	cfg.SampleRate = 8000
	cfg.Treble = Band{Low: 2000, High: 20000}
	a, err = NewAnalyzer(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1024, a.treble.end, "band end clamps to N/2")
}

func TestProcessTrebleSine(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	const freq = 3000.0
	f := a.Process(sine(freq, 48000, 4096))

	assert.InDelta(t, freq, float64(f.Peak), float64(a.BinWidth()))
	assert.Greater(t, f.Treble, f.Bass)
	assert.Greater(t, f.Treble, f.Mid)
	assert.InDelta(t, float64(f.Bass+f.Mid+f.Treble), float64(f.Overall), 1e-3)
}

func TestProcessBassSine(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	f := a.Process(sine(187.5, 48000, 2048))

	assert.InDelta(t, 187.5, float64(f.Peak), float64(a.BinWidth()))
	assert.Greater(t, f.Bass, f.Mid)
	assert.Greater(t, f.Bass, f.Treble)
}

func TestProcessDeterministic(t *testing.T) {
	samples := sine(1234.5, 48000, 2048)
	for i := range samples {
		samples[i] += 0.25 * float32(math.Cos(float64(i)*0.01))
	}

	a1, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)
	a2, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	first := a1.Process(samples)
	again := a1.Process(samples)
	other := a2.Process(samples)

	for _, f := range []Frame{again, other} {
		assert.Equal(t, math.Float32bits(first.Bass), math.Float32bits(f.Bass))
		assert.Equal(t, math.Float32bits(first.Mid), math.Float32bits(f.Mid))
		assert.Equal(t, math.Float32bits(first.Treble), math.Float32bits(f.Treble))
		assert.Equal(t, math.Float32bits(first.Peak), math.Float32bits(f.Peak))
		assert.Equal(t, math.Float32bits(first.Overall), math.Float32bits(f.Overall))
	}
}

func TestProcessSilence(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, Frame{}, a.Process(make([]float32, 2048)))
	assert.Equal(t, Frame{}, a.Process(nil))
}

func TestProcessPadsAndTruncates(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	long := sine(440, 48000, 3000)

	short := a.Process(long[:100])
	padded := make([]float32, 2048)
	copy(padded, long[:100])
	assert.Equal(t, short, a.Process(padded))

	assert.Equal(t, a.Process(long[:2048]), a.Process(long))
}

func TestProcessSensitivity(t *testing.T) {
	samples := sine(500, 48000, 2048)

	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)
	base := a.Process(samples)

	cfg := testConfig()
	cfg.Sensitivity = 2
	b, err := NewAnalyzer(cfg, nil)
	require.NoError(t, err)
	scaled := b.Process(samples)

	assert.Equal(t, base.Bass*2, scaled.Bass)
	assert.Equal(t, base.Mid*2, scaled.Mid)
	assert.Equal(t, base.Treble*2, scaled.Treble)
	assert.Equal(t, base.Overall*2, scaled.Overall)
	assert.Equal(t, base.Peak, scaled.Peak, "peak frequency is not scaled")
}

func TestProcessNaNPropagates(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	samples := sine(440, 48000, 2048)
	samples[1000] = float32(math.NaN())
	f := a.Process(samples)
	assert.True(t, math.IsNaN(float64(f.Overall)))
}

func TestProcessSendsToFeed(t *testing.T) {
	feed := NewFeed(2)
	a, err := NewAnalyzer(testConfig(), feed)
	require.NoError(t, err)

	want := a.Process(sine(3000, 48000, 2048))
	got, ok := feed.Latest()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFFTMatchesDFT(t *testing.T) {
	const n = 16
	f, err := newFFT(n)
	require.NoError(t, err)

	in := make([]complex64, n)
	for i := range in {
		in[i] = complex(float32(math.Sin(float64(i)*0.7)+0.3*float64(i%3)), 0)
	}
	got := append([]complex64(nil), in...)
	f.forward(got)

	for k := 0; k < n; k++ {
		var re, im float64
		for j := 0; j < n; j++ {
			angle := -2 * math.Pi * float64(k*j) / n
			re += float64(real(in[j])) * math.Cos(angle)
			im += float64(real(in[j])) * math.Sin(angle)
		}
		assert.InDelta(t, re, float64(real(got[k])), 1e-4, "bin %d real", k)
		assert.InDelta(t, im, float64(imag(got[k])), 1e-4, "bin %d imag", k)
	}
}

func TestSyntheticInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := Synthetic(float64(i) * 0.37)
		for _, v := range []float32{f.Bass, f.Mid, f.Treble, f.Overall} {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
		assert.Equal(t, float32(440), f.Peak)
	}
}

func TestHannWindowSinglePrecision(t *testing.T) {
	a, err := NewAnalyzer(Config{SampleRate: 8000, Size: 8, Bass: Band{0, 100}, Mid: Band{100, 1000}, Treble: Band{1000, 4000}, Sensitivity: 1}, nil)
	require.NoError(t, err)

	for i, w := range a.window {
		phase := 2 * math.Pi * float32(i) / 8
		want := 0.5 * (1 - float32(math.Cos(float64(phase))))
		assert.Equal(t, want, w, "window[%d]", i)
	}
	assert.Zero(t, a.window[0])
	assert.InDelta(t, 1, a.window[4], 1e-7)
}
