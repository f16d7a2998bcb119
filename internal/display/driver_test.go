package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/soundscape/internal/palette"
	"github.com/satindergrewal/soundscape/internal/spectrum"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) Publish(png []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, png)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func newDriver(t *testing.T, feed *spectrum.Feed, pub Publisher) *Driver {
	t.Helper()
	e := testEngine(t, 8, 6)
	r := NewRenderer(palette.New(palette.Classic), 2)
	return NewDriver(e, feed, r, pub, Options{FPS: 20, UpdateRate: 20, SeedDensity: 0.5})
}

func TestTickPublishesFrame(t *testing.T) {
	rec := &recorder{}
	d := newDriver(t, nil, rec)
	assert.Nil(t, d.Snapshot())

	d.Tick(time.Now(), 50*time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.NotEmpty(t, d.Snapshot())
	assert.EqualValues(t, 1, d.Status().Generation)
}

func TestTickRespectsUpdateRate(t *testing.T) {
	d := newDriver(t, nil, nil)
	start := time.Now()

	d.Tick(start, 0)
	d.Tick(start, 0)
	assert.EqualValues(t, 1, d.Status().Generation, "no token left at the same instant")

	d.Tick(start.Add(60*time.Millisecond), 60*time.Millisecond)
	assert.EqualValues(t, 2, d.Status().Generation)
}

func TestTickCatchesUpWhenRateExceedsFPS(t *testing.T) {
	e := testEngine(t, 4, 4)
	r := NewRenderer(palette.New(palette.Classic), 1)
	d := NewDriver(e, nil, r, nil, Options{FPS: 10, UpdateRate: 30})
	start := time.Now()

	d.Tick(start, 0)
	assert.EqualValues(t, 3, d.Status().Generation)
	d.Tick(start.Add(100*time.Millisecond), 100*time.Millisecond)
	assert.EqualValues(t, 6, d.Status().Generation)
}

func TestTickInstallsAudioPolicy(t *testing.T) {
	feed := spectrum.NewFeed(2)
	d := newDriver(t, feed, nil)

	d.Tick(time.Now(), 0)
	assert.Equal(t, "standard", d.Status().Policy)
	assert.False(t, d.Status().Heard)

	feed.Send(spectrum.Frame{Bass: 0.1})
	feed.Send(spectrum.Frame{Bass: 0.9, Mid: 0.8, Treble: 0.2, Overall: 1.9})
	d.Tick(time.Now(), 0)

	st := d.Status()
	assert.Equal(t, "audio B2/S2-4", st.Policy)
	assert.True(t, st.Heard)
	assert.InDelta(t, 0.9, st.Audio.Bass, 1e-6)
	assert.Zero(t, feed.Len())
}

func TestApplyCommands(t *testing.T) {
	d := newDriver(t, nil, nil)
	start := time.Now()

	d.apply(Command{Op: OpPause})
	d.Tick(start, 0)
	assert.True(t, d.Status().Paused)
	assert.Zero(t, d.Status().Generation)

	d.apply(Command{Op: OpStep})
	assert.EqualValues(t, 1, d.Status().Generation)

	full := float32(1)
	d.apply(Command{Op: OpRandomize, Density: &full})
	assert.Equal(t, 48, d.Status().Population)

	d.apply(Command{Op: OpClear})
	assert.Zero(t, d.Status().Population)

	d.apply(Command{Op: OpCell, X: 3, Y: 2, Alive: true})
	assert.True(t, d.engine.IsAlive(3, 2))

	d.apply(Command{Op: OpScheme, Scheme: "rainbow"})
	assert.Equal(t, "rainbow", d.Status().Scheme)

	d.apply(Command{Op: OpBoundary, Boundary: "alive"})
	assert.Equal(t, "alive", d.Status().Boundary)

	d.apply(Command{Op: OpResume})
	d.Tick(start.Add(time.Second), time.Second)
	assert.False(t, d.Status().Paused)
	assert.EqualValues(t, 2, d.Status().Generation)
}

func TestSubmit(t *testing.T) {
	d := newDriver(t, nil, nil)

	assert.ErrorIs(t, d.Submit(Command{Op: "explode"}), ErrUnknownCommand)
	assert.Error(t, d.Submit(Command{Op: OpScheme, Scheme: "plasma"}))

	for i := 0; i < cap(d.cmds); i++ {
		require.NoError(t, d.Submit(Command{Op: OpClear}))
	}
	assert.ErrorIs(t, d.Submit(Command{Op: OpClear}), ErrBusy)
}

func TestCommandValidate(t *testing.T) {
	bad := float32(1.5)
	ok := float32(0.2)
	tests := []struct {
		cmd   Command
		valid bool
	}{
		{Command{Op: OpRandomize}, true},
		{Command{Op: OpRandomize, Density: &ok}, true},
		{Command{Op: OpRandomize, Density: &bad}, false},
		{Command{Op: OpScheme, Scheme: "heat"}, true},
		{Command{Op: OpScheme}, false},
		{Command{Op: OpBoundary, Boundary: "wrap"}, true},
		{Command{Op: OpBoundary, Boundary: "mirror"}, false},
		{Command{Op: OpCell, X: -5}, true},
		{Command{Op: ""}, false},
	}
	for _, tt := range tests {
		err := tt.cmd.Validate()
		assert.Equal(t, tt.valid, err == nil, "%+v: %v", tt.cmd, err)
	}
}

func TestRunAppliesSubmittedCommands(t *testing.T) {
	rec := &recorder{}
	e := testEngine(t, 8, 6)
	d := NewDriver(e, nil, NewRenderer(palette.New(palette.Classic), 1), rec, Options{FPS: 100, UpdateRate: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Submit(Command{Op: OpScheme, Scheme: "heat"}))
	require.Eventually(t, func() bool { return d.Status().Scheme == "heat" }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}
