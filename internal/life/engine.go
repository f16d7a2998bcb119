// Package life is a double-buffered Game of Life whose rules can be swapped
// at runtime. Every cell tracks how many generations it has been alive.
package life

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// ErrEmptyGrid is returned for a zero or negative dimension.
var ErrEmptyGrid = errors.New("life: grid dimensions must be positive")

// MaxAge is where cell age saturates.
const MaxAge = math.MaxUint8

// Stats summarizes the most recent generation.
type Stats struct {
	Generation uint64 `json:"generation"`
	Population int    `json:"population"`
	Births     int    `json:"births"`
	Deaths     int    `json:"deaths"`
	Mutations  int    `json:"mutations"`
}

// Engine owns the grid. All methods are safe for concurrent use; mutations
// are serialized behind one lock and renderers read through View.
type Engine struct {
	mu sync.RWMutex

	width, height int
	planes        [2][]bool // planes[cur] is the live generation, the other is scratch
	cur           int
	age           []uint8

	policy   Policy
	boundary Boundary
	rng      *rand.Rand
	stats    Stats
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithBoundary sets the edge policy. The default is Wrap.
func WithBoundary(b Boundary) Option {
	return func(e *Engine) { e.boundary = b }
}

// WithPolicy sets the initial rule. The default is Standard.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithSeed makes seeding and mutation reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New allocates a width×height grid and seeds it with the given density.
func New(width, height int, density float32, opts ...Option) (*Engine, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w (got %dx%d)", ErrEmptyGrid, width, height)
	}

	n := width * height
	e := &Engine{
		width:  width,
		height: height,
		planes: [2][]bool{make([]bool, n), make([]bool, n)},
		age:    make([]uint8, n),
		policy: Standard{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e.randomize(density)
	return e, nil
}

// Width returns the grid width in cells.
func (e *Engine) Width() int { return e.width }

// Height returns the grid height in cells.
func (e *Engine) Height() int { return e.height }

// Step advances one generation with the active policy.
//
// Mutation is applied to every cell after the rule, with the policy's
// MutationChance, and the age plane follows the final state.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.planes[e.cur]
	next := e.planes[1-e.cur]
	mutation := e.policy.MutationChance()

	var stats Stats
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			i := y*e.width + x
			alive := cur[i]
			state := e.policy.Apply(alive, e.neighbors(cur, x, y))
			if mutation > 0 && e.rng.Float32() < mutation {
				state = !state
				stats.Mutations++
			}
			next[i] = state

			switch {
			case state && alive:
				if e.age[i] < MaxAge {
					e.age[i]++
				}
				stats.Population++
			case state:
				e.age[i] = 1
				stats.Population++
				stats.Births++
			default:
				e.age[i] = 0
				if alive {
					stats.Deaths++
				}
			}
		}
	}

	e.cur = 1 - e.cur
	stats.Generation = e.stats.Generation + 1
	e.stats = stats
}

// neighbors counts live Moore neighbors of (x, y) in plane.
func (e *Engine) neighbors(plane []bool, x, y int) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= e.width || ny < 0 || ny >= e.height {
				switch e.boundary {
				case Wrap:
					nx = (nx + e.width) % e.width
					ny = (ny + e.height) % e.height
				case Alive:
					count++
					continue
				default:
					continue
				}
			}
			if plane[ny*e.width+nx] {
				count++
			}
		}
	}
	return count
}

// InstallPolicy replaces the active rule. It applies from the next Step.
func (e *Engine) InstallPolicy(p Policy) {
	if p == nil {
		p = Standard{}
	}
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
}

// Policy returns the active rule.
func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetBoundary changes the edge policy.
func (e *Engine) SetBoundary(b Boundary) {
	e.mu.Lock()
	e.boundary = b
	e.mu.Unlock()
}

// Boundary returns the edge policy.
func (e *Engine) Boundary() Boundary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.boundary
}

// SetCell sets one cell. Writes outside the grid are ignored. A cell set
// alive keeps its age (zero if it was dead); ages only advance in Step.
func (e *Engine) SetCell(x, y int, alive bool) {
	if !e.inBounds(x, y) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := y*e.width + x
	plane := e.planes[e.cur]
	switch {
	case alive && !plane[i]:
		e.stats.Population++
	case !alive && plane[i]:
		e.stats.Population--
	}
	plane[i] = alive
	if !alive {
		e.age[i] = 0
	}
}

// IsAlive reports whether (x, y) is alive; false outside the grid.
func (e *Engine) IsAlive(x, y int) bool {
	if !e.inBounds(x, y) {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.planes[e.cur][y*e.width+x]
}

// CellAge returns the consecutive-alive count of (x, y); 0 outside the grid.
func (e *Engine) CellAge(x, y int) uint8 {
	if !e.inBounds(x, y) {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.age[y*e.width+x]
}

// Clear kills every cell and zeroes ages.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.planes[e.cur])
	clear(e.age)
	e.stats.Population = 0
}

// Randomize makes each cell alive with probability density and zeroes ages.
func (e *Engine) Randomize(density float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.randomize(density)
}

func (e *Engine) randomize(density float32) {
	plane := e.planes[e.cur]
	pop := 0
	for i := range plane {
		plane[i] = e.rng.Float32() < density
		if plane[i] {
			pop++
		}
	}
	clear(e.age)
	e.stats.Population = pop
}

// Stats returns counters for the last generation. Population always counts
// the current grid, including edits made since the last Step.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// View runs fn with a read-only view of the current generation. The engine
// cannot step while fn runs, so fn should copy what it needs and return.
func (e *Engine) View(fn func(Grid)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(Grid{
		width:  e.width,
		height: e.height,
		cells:  e.planes[e.cur],
		age:    e.age,
	})
}

func (e *Engine) inBounds(x, y int) bool {
	return x >= 0 && x < e.width && y >= 0 && y < e.height
}

// Grid is a borrowed view of the engine state, valid only inside View.
type Grid struct {
	width, height int
	cells         []bool
	age           []uint8
}

// Width returns the grid width in cells.
func (g Grid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g Grid) Height() int { return g.height }

// Alive reports whether (x, y) is alive; false outside the grid.
func (g Grid) Alive(x, y int) bool {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return false
	}
	return g.cells[y*g.width+x]
}

// Age returns the age of (x, y); 0 outside the grid.
func (g Grid) Age(x, y int) uint8 {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return 0
	}
	return g.age[y*g.width+x]
}
