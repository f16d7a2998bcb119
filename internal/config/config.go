package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/soundscape/internal/life"
	"github.com/satindergrewal/soundscape/internal/palette"
	"github.com/satindergrewal/soundscape/internal/spectrum"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// OpusRates are the sample rates the WebRTC encoder accepts. The whole
// pipeline runs at one of them so decoded audio never needs a second pass.
var OpusRates = []int{8000, 12000, 16000, 24000, 48000}

// Config holds all runtime configuration. Defaults come from Default, a YAML
// file may override them, and environment variables override both.
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Simulation SimulationConfig `yaml:"simulation"`
	Visual     VisualConfig     `yaml:"visual"`
	Server     ServerConfig     `yaml:"server"`
	Playlist   PlaylistConfig   `yaml:"playlist"`
	Autopilot  AutopilotConfig  `yaml:"autopilot"`
}

type AudioConfig struct {
	SampleRate   int           `yaml:"sample_rate"`
	FFTSize      int           `yaml:"fft_size"`
	Bass         spectrum.Band `yaml:"bass"`
	Mid          spectrum.Band `yaml:"mid"`
	Treble       spectrum.Band `yaml:"treble"`
	Sensitivity  float32       `yaml:"sensitivity"`
	FeedCapacity int           `yaml:"feed_capacity"` // analysis frames buffered for the simulation
}

type SimulationConfig struct {
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	UpdateRate  float64       `yaml:"update_rate"`  // generations per second
	InitialSeed float32       `yaml:"initial_seed"` // live cell density at start, 0-1
	Boundary    life.Boundary `yaml:"boundary"`
}

type VisualConfig struct {
	CellSize int            `yaml:"cell_size"` // pixels per cell edge
	Scheme   palette.Scheme `yaml:"color_scheme"`
	FPS      int            `yaml:"fps"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PlaylistConfig struct {
	Files     []string      `yaml:"files"`
	Loop      bool          `yaml:"loop"`
	Crossfade time.Duration `yaml:"crossfade"`
}

type AutopilotConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DwellMin     time.Duration `yaml:"dwell_min"` // min time per color scheme
	DwellMax     time.Duration `yaml:"dwell_max"`
	ExtinctTicks int           `yaml:"extinct_ticks"` // empty checks before a reseed
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:   48000,
			FFTSize:      2048,
			Bass:         spectrum.Band{Low: 20, High: 250},
			Mid:          spectrum.Band{Low: 250, High: 2000},
			Treble:       spectrum.Band{Low: 2000, High: 20000},
			Sensitivity:  1,
			FeedCapacity: spectrum.DefaultFeedCapacity,
		},
		Simulation: SimulationConfig{
			Width:       200,
			Height:      150,
			UpdateRate:  30,
			InitialSeed: 0.3,
			Boundary:    life.Wrap,
		},
		Visual: VisualConfig{
			CellSize: 4,
			Scheme:   palette.Pulse,
			FPS:      20,
		},
		Server: ServerConfig{Port: 8080},
		Playlist: PlaylistConfig{
			Loop:      true,
			Crossfade: 4 * time.Second,
		},
		Autopilot: AutopilotConfig{
			Enabled:      false,
			DwellMin:     30 * time.Second,
			DwellMax:     90 * time.Second,
			ExtinctTicks: 3,
		},
	}
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.Playlist.Files = expandPaths(cfg.Playlist.Files)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies environment
// overrides. Unknown keys are rejected. The result is not validated.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config path %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.Playlist.Files = expandPaths(cfg.Playlist.Files)
	return cfg, nil
}

func (c *Config) applyEnv() {
	a := &c.Audio
	a.SampleRate = envInt("SOUNDSCAPE_SAMPLE_RATE", a.SampleRate)
	a.FFTSize = envInt("SOUNDSCAPE_FFT_SIZE", a.FFTSize)
	a.Sensitivity = float32(envFloat("SOUNDSCAPE_SENSITIVITY", float64(a.Sensitivity)))
	a.FeedCapacity = envInt("SOUNDSCAPE_FEED_CAPACITY", a.FeedCapacity)

	s := &c.Simulation
	s.Width = envInt("SOUNDSCAPE_WIDTH", s.Width)
	s.Height = envInt("SOUNDSCAPE_HEIGHT", s.Height)
	s.UpdateRate = envFloat("SOUNDSCAPE_UPDATE_RATE", s.UpdateRate)
	s.InitialSeed = float32(envFloat("SOUNDSCAPE_SEED_DENSITY", float64(s.InitialSeed)))
	if b, err := life.ParseBoundary(envStr("SOUNDSCAPE_BOUNDARY", s.Boundary.String())); err == nil {
		s.Boundary = b
	}

	v := &c.Visual
	v.CellSize = envInt("SOUNDSCAPE_CELL_SIZE", v.CellSize)
	v.FPS = envInt("SOUNDSCAPE_FPS", v.FPS)
	if sc, err := palette.ParseScheme(envStr("SOUNDSCAPE_SCHEME", v.Scheme.String())); err == nil {
		v.Scheme = sc
	}

	c.Server.Port = envInt("SOUNDSCAPE_PORT", c.Server.Port)

	p := &c.Playlist
	if list := envStr("SOUNDSCAPE_PLAYLIST", ""); list != "" {
		p.Files = filepath.SplitList(list)
	}
	p.Loop = envBool("SOUNDSCAPE_LOOP", p.Loop)
	p.Crossfade = envSeconds("SOUNDSCAPE_CROSSFADE_DURATION", p.Crossfade)

	ap := &c.Autopilot
	ap.Enabled = envBool("SOUNDSCAPE_AUTOPILOT", ap.Enabled)
	ap.DwellMin = envSeconds("SOUNDSCAPE_DWELL_MIN", ap.DwellMin)
	ap.DwellMax = envSeconds("SOUNDSCAPE_DWELL_MAX", ap.DwellMax)
	ap.ExtinctTicks = envInt("SOUNDSCAPE_EXTINCT_TICKS", ap.ExtinctTicks)
}

// Validate reports the first problem that would make start-up fail.
func (c Config) Validate() error {
	a := c.Audio
	if !slices.Contains(OpusRates, a.SampleRate) {
		return fmt.Errorf("%w: sample rate %d not one of %v", ErrInvalid, a.SampleRate, OpusRates)
	}
	if a.FFTSize < 2 || a.FFTSize&(a.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fft size %d is not a power of two", ErrInvalid, a.FFTSize)
	}
	for _, b := range []struct {
		name string
		band spectrum.Band
	}{{"bass", a.Bass}, {"mid", a.Mid}, {"treble", a.Treble}} {
		if b.band.Low < 0 || b.band.Low >= b.band.High {
			return fmt.Errorf("%w: %s band [%v, %v)", ErrInvalid, b.name, b.band.Low, b.band.High)
		}
	}
	if a.Sensitivity < 0 {
		return fmt.Errorf("%w: negative sensitivity %v", ErrInvalid, a.Sensitivity)
	}

	s := c.Simulation
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalid, s.Width, s.Height)
	}
	if s.UpdateRate <= 0 {
		return fmt.Errorf("%w: update rate %v", ErrInvalid, s.UpdateRate)
	}
	if s.InitialSeed < 0 || s.InitialSeed > 1 {
		return fmt.Errorf("%w: initial seed %v outside [0, 1]", ErrInvalid, s.InitialSeed)
	}
	if _, err := life.ParseBoundary(s.Boundary.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	v := c.Visual
	if v.CellSize <= 0 {
		return fmt.Errorf("%w: cell size %d", ErrInvalid, v.CellSize)
	}
	if v.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalid, v.FPS)
	}
	if _, err := palette.ParseScheme(v.Scheme.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Server.Port)
	}
	if c.Playlist.Crossfade < 0 {
		return fmt.Errorf("%w: negative crossfade", ErrInvalid)
	}
	ap := c.Autopilot
	if ap.DwellMin <= 0 || ap.DwellMax < ap.DwellMin {
		return fmt.Errorf("%w: dwell range %v-%v", ErrInvalid, ap.DwellMin, ap.DwellMax)
	}
	if ap.ExtinctTicks < 1 {
		return fmt.Errorf("%w: extinct ticks %d", ErrInvalid, ap.ExtinctTicks)
	}
	return nil
}

// Spectrum returns the analyzer settings.
func (a AudioConfig) Spectrum() spectrum.Config {
	return spectrum.Config{
		SampleRate:  a.SampleRate,
		Size:        a.FFTSize,
		Bass:        a.Bass,
		Mid:         a.Mid,
		Treble:      a.Treble,
		Sensitivity: a.Sensitivity,
	}
}

// expandPaths resolves ~ and $VARS in playlist entries. Entries that cannot
// be expanded are kept as written and fail later when opened.
func expandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if exp, err := homedir.Expand(os.ExpandEnv(p)); err == nil {
			p = exp
		}
		out = append(out, p)
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envSeconds reads a whole number of seconds.
func envSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
