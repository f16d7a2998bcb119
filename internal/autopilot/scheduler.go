// Package autopilot keeps an unattended installation interesting: it walks
// the color scheme graph on a random dwell timer and reseeds the grid when
// the population dies out.
package autopilot

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/satindergrewal/soundscape/internal/palette"
)

// Config holds autopilot parameters.
type Config struct {
	Start         palette.Scheme
	DwellMin      time.Duration // min time per scheme
	DwellMax      time.Duration // max time per scheme
	ExtinctTicks  int           // consecutive empty checks before a reseed
	CheckInterval time.Duration // how often Run looks at the grid
}

// Status is the current state of the autopilot.
type Status struct {
	Scheme         string  `json:"scheme"`
	Enabled        bool    `json:"enabled"`
	DwellRemaining float64 `json:"dwell_remaining"` // seconds
	EmptyChecks    int     `json:"empty_checks"`
	Reseeds        int     `json:"reseeds"`
}

// SchemeFunc applies a color scheme, usually by submitting a display command.
type SchemeFunc func(palette.Scheme) error

// ReseedFunc refills an empty grid.
type ReseedFunc func() error

// PopulationFunc reports the number of live cells.
type PopulationFunc func() int

// Scheduler manages scheme transitions and extinction recovery.
type Scheduler struct {
	cfg Config

	mu       sync.RWMutex
	schemeFn SchemeFunc
	reseedFn ReseedFunc
	popFn    PopulationFunc
	current  palette.Scheme
	enabled  bool
	dwellEnd time.Time
	empty    int
	reseeds  int
}

// NewScheduler creates a disabled scheduler.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.ExtinctTicks < 1 {
		cfg.ExtinctTicks = 1
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Second
	}
	return &Scheduler{cfg: cfg, current: cfg.Start}
}

// SetSchemeFunc sets how transitions are applied.
func (s *Scheduler) SetSchemeFunc(fn SchemeFunc) {
	s.mu.Lock()
	s.schemeFn = fn
	s.mu.Unlock()
}

// SetReseedFunc sets how an extinct grid is refilled.
func (s *Scheduler) SetReseedFunc(fn ReseedFunc) {
	s.mu.Lock()
	s.reseedFn = fn
	s.mu.Unlock()
}

// SetPopulationFunc sets where the population is read from. Without one
// extinction is never detected.
func (s *Scheduler) SetPopulationFunc(fn PopulationFunc) {
	s.mu.Lock()
	s.popFn = fn
	s.mu.Unlock()
}

// Status returns the current autopilot state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	remaining := time.Until(s.dwellEnd).Seconds()
	if remaining < 0 || !s.enabled {
		remaining = 0
	}
	return Status{
		Scheme:         s.current.String(),
		Enabled:        s.enabled,
		DwellRemaining: remaining,
		EmptyChecks:    s.empty,
		Reseeds:        s.reseeds,
	}
}

// SetEnabled turns the autopilot on or off. Turning it on starts a fresh dwell.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.empty = 0
	if enabled {
		s.resetDwell(time.Now())
	}
	s.mu.Unlock()
	log.Printf("Autopilot enabled: %v", enabled)
}

// Observe records a scheme chosen by someone else, so the next transition
// starts from it, and restarts the dwell timer.
func (s *Scheduler) Observe(scheme palette.Scheme) {
	s.mu.Lock()
	s.current = scheme
	s.resetDwell(time.Now())
	s.mu.Unlock()
}

// Run checks the dwell timer and the population every CheckInterval.
// Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	s.mu.Lock()
	s.resetDwell(time.Now())
	s.mu.Unlock()
	log.Printf("Autopilot started with scheme: %s", s.Status().Scheme)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Check(now)
		}
	}
}

// Check runs one round of the dwell and extinction checks as of now.
func (s *Scheduler) Check(now time.Time) {
	s.mu.RLock()
	enabled := s.enabled
	expired := now.After(s.dwellEnd)
	popFn := s.popFn
	s.mu.RUnlock()

	if !enabled {
		return
	}
	if expired {
		s.transition(now)
	}
	if popFn != nil {
		s.watchPopulation(popFn())
	}
}

func (s *Scheduler) transition(now time.Time) {
	s.mu.Lock()
	next := s.current
	if adj := Neighbors(s.current); len(adj) > 0 {
		next = adj[rand.IntN(len(adj))]
	}
	prev := s.current
	fn := s.schemeFn
	s.resetDwell(now)
	s.mu.Unlock()

	if next == prev || fn == nil {
		return
	}
	if err := fn(next); err != nil {
		log.Printf("Autopilot transition to %s failed: %v", next, err)
		return
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	transitionsTotal.Inc()
	log.Printf("Autopilot transition: %s -> %s", prev, next)
}

func (s *Scheduler) watchPopulation(pop int) {
	s.mu.Lock()
	if pop > 0 {
		s.empty = 0
		s.mu.Unlock()
		return
	}
	s.empty++
	due := s.empty >= s.cfg.ExtinctTicks
	fn := s.reseedFn
	s.mu.Unlock()

	if !due || fn == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("Autopilot reseed failed: %v", err)
		return
	}
	s.mu.Lock()
	s.empty = 0
	s.reseeds++
	s.mu.Unlock()
	reseedsTotal.Inc()
	log.Printf("Grid went extinct, reseeded")
}

// resetDwell sets a new random dwell timer. Must be called with mu held.
func (s *Scheduler) resetDwell(now time.Time) {
	dwell := s.cfg.DwellMin
	if spread := s.cfg.DwellMax - s.cfg.DwellMin; spread > 0 {
		dwell += rand.N(spread)
	}
	s.dwellEnd = now.Add(dwell)
}
