package display

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/satindergrewal/soundscape/internal/life"
	"github.com/satindergrewal/soundscape/internal/palette"
	"github.com/satindergrewal/soundscape/internal/spectrum"
)

// Publisher receives every rendered frame.
type Publisher interface {
	Publish(png []byte)
}

// Options tune the driver loop.
type Options struct {
	FPS         int     // render ticks per second
	UpdateRate  float64 // generations per second
	SeedDensity float32 // density for randomize without an explicit one
}

// Status is a point-in-time summary for the API and viewers.
type Status struct {
	life.Stats
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Policy   string         `json:"policy"`
	Boundary string         `json:"boundary"`
	Scheme   string         `json:"scheme"`
	Paused   bool           `json:"paused"`
	Audio    spectrum.Frame `json:"audio"`
	Heard    bool           `json:"heard"` // at least one analysis frame has arrived
}

// Driver owns the tick loop: it pulls the newest analysis frame, retunes
// the rules, steps the engine at the update rate and publishes a rendered
// frame every tick.
type Driver struct {
	engine    *life.Engine
	feed      *spectrum.Feed
	renderer  *Renderer
	publisher Publisher
	limiter   *rate.Limiter
	opts      Options
	cmds      chan Command

	// Owned by the Run goroutine.
	paused bool
	frame  spectrum.Frame
	heard  bool

	mu       sync.RWMutex
	status   Status
	snapshot []byte
}

// NewDriver wires the pieces together. feed and pub may be nil.
func NewDriver(e *life.Engine, feed *spectrum.Feed, r *Renderer, pub Publisher, opts Options) *Driver {
	if opts.FPS <= 0 {
		opts.FPS = 20
	}
	if opts.UpdateRate <= 0 {
		opts.UpdateRate = float64(opts.FPS)
	}
	// Allow enough burst to hit the update rate when it exceeds the FPS.
	burst := max(1, int(math.Ceil(opts.UpdateRate/float64(opts.FPS))))
	d := &Driver{
		engine:    e,
		feed:      feed,
		renderer:  r,
		publisher: pub,
		limiter:   rate.NewLimiter(rate.Limit(opts.UpdateRate), burst),
		opts:      opts,
		cmds:      make(chan Command, 32),
	}
	d.refreshStatus()
	return d
}

// Submit queues a command for the next tick. It never blocks.
func (d *Driver) Submit(c Command) error {
	if err := c.Validate(); err != nil {
		return err
	}
	select {
	case d.cmds <- c:
		return nil
	default:
		return ErrBusy
	}
}

// Status returns the state as of the last tick.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Snapshot returns the last rendered PNG, or nil before the first tick.
func (d *Driver) Snapshot() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

// Run ticks at the configured FPS until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(d.opts.FPS))
	defer ticker.Stop()

	log.Printf("Display running (%d FPS, %.1f generations/s)", d.opts.FPS, d.opts.UpdateRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-d.cmds:
			d.apply(c)
		case now := <-ticker.C:
			d.Tick(now, now.Sub(last))
			last = now
		}
	}
}

// Tick runs one frame: newest audio, rule swap, steps, render, publish.
// Run calls it; tests call it directly to avoid timing.
func (d *Driver) Tick(now time.Time, dt time.Duration) {
	var fresh *spectrum.Frame
	if d.feed != nil {
		if fr, ok := d.feed.Latest(); ok {
			d.frame, d.heard = fr, true
			fresh = &fr
			d.engine.InstallPolicy(life.NewAudioDriven(fr.Bass, fr.Mid, fr.Treble))
			bandEnergy.WithLabelValues("bass").Set(float64(fr.Bass))
			bandEnergy.WithLabelValues("mid").Set(float64(fr.Mid))
			bandEnergy.WithLabelValues("treble").Set(float64(fr.Treble))
		}
	}
	d.renderer.Palette().Update(fresh, float32(dt.Seconds()))

	if !d.paused {
		for d.limiter.AllowN(now, 1) {
			d.step()
		}
	}

	png, err := d.renderer.Render(d.engine)
	if err != nil {
		log.Printf("Render failed: %v", err)
		return
	}
	framesRendered.Inc()

	d.mu.Lock()
	d.snapshot = png
	d.mu.Unlock()
	d.refreshStatus()

	if d.publisher != nil {
		d.publisher.Publish(png)
	}
}

func (d *Driver) step() {
	start := time.Now()
	d.engine.Step()
	stepDuration.Observe(time.Since(start).Seconds())
	generations.Inc()
}

func (d *Driver) apply(c Command) {
	switch c.Op {
	case OpRandomize:
		density := d.opts.SeedDensity
		if c.Density != nil {
			density = *c.Density
		}
		d.engine.Randomize(density)
	case OpClear:
		d.engine.Clear()
	case OpScheme:
		if s, err := palette.ParseScheme(c.Scheme); err == nil {
			d.renderer.Palette().SetScheme(s)
			log.Printf("Color scheme: %s", s)
		}
	case OpBoundary:
		if b, err := life.ParseBoundary(c.Boundary); err == nil {
			d.engine.SetBoundary(b)
		}
	case OpCell:
		d.engine.SetCell(c.X, c.Y, c.Alive)
	case OpPause:
		d.paused = true
	case OpResume:
		d.paused = false
	case OpStep:
		d.step()
	}
	d.refreshStatus()
}

func (d *Driver) refreshStatus() {
	st := Status{
		Stats:    d.engine.Stats(),
		Width:    d.engine.Width(),
		Height:   d.engine.Height(),
		Policy:   life.PolicyName(d.engine.Policy()),
		Boundary: d.engine.Boundary().String(),
		Scheme:   d.renderer.Palette().Scheme().String(),
		Paused:   d.paused,
		Audio:    d.frame,
		Heard:    d.heard,
	}
	population.Set(float64(st.Population))

	d.mu.Lock()
	d.status = st
	d.mu.Unlock()
}
