package spectrum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedBackpressureDropsOldest(t *testing.T) {
	feed := NewFeed(2)

	assert.False(t, feed.Send(Frame{Bass: 1}))
	assert.False(t, feed.Send(Frame{Bass: 2}))
	assert.True(t, feed.Send(Frame{Bass: 3}))

	require.Equal(t, 2, feed.Len())
	assert.Equal(t, uint64(1), feed.Dropped())

	first, ok := feed.Poll()
	require.True(t, ok)
	second, ok := feed.Poll()
	require.True(t, ok)
	_, ok = feed.Poll()
	assert.False(t, ok)

	assert.Equal(t, float32(2), first.Bass)
	assert.Equal(t, float32(3), second.Bass)
}

func TestFeedLatestDrains(t *testing.T) {
	feed := NewFeed(4)
	_, ok := feed.Latest()
	assert.False(t, ok, "empty feed has no latest frame")

	for i := 1; i <= 3; i++ {
		feed.Send(Frame{Mid: float32(i)})
	}
	latest, ok := feed.Latest()
	require.True(t, ok)
	assert.Equal(t, float32(3), latest.Mid)
	assert.Zero(t, feed.Len())

	_, ok = feed.Latest()
	assert.False(t, ok)
}

func TestFeedSendNeverBlocks(t *testing.T) {
	feed := NewFeed(DefaultFeedCapacity)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			feed.Send(Frame{Treble: float32(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked with no consumer")
	}
	assert.Equal(t, DefaultFeedCapacity, feed.Len())
	latest, _ := feed.Latest()
	assert.Equal(t, float32(9999), latest.Treble)
}

func TestFeedMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewFeed(0).Cap())
	assert.Equal(t, 1, NewFeed(-3).Cap())
}

func TestHistoryOrder(t *testing.T) {
	h := NewHistory(4)
	assert.Equal(t, []float32{0, 0, 0, 0}, h.Samples())

	h.Write([]float32{1, 2})
	assert.Equal(t, []float32{0, 0, 1, 2}, h.Samples())

	h.Write([]float32{3, 4, 5})
	assert.Equal(t, []float32{2, 3, 4, 5}, h.Samples())

	h.Write([]float32{6, 7, 8, 9, 10, 11})
	assert.Equal(t, []float32{8, 9, 10, 11}, h.Samples())
}

func TestMixdown(t *testing.T) {
	got := Mixdown([]int16{16384, 16384, -32768, 0, 100}, 2, nil)
	require.Len(t, got, 2, "trailing partial frame is ignored")
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, -0.5, got[1], 1e-6)

	mono := Mixdown([]int16{-32768}, 0, nil)
	assert.Equal(t, []float32{-1}, mono)
}

func TestConsumeFeedsAnalyzer(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 256
	feed := NewFeed(8)
	a, err := NewAnalyzer(cfg, feed)
	require.NoError(t, err)

	pcm := make(chan []int16, 3)
	for i := 0; i < 3; i++ {
		frame := make([]int16, 2*128)
		for j := range frame {
			frame[j] = int16(1000 * (j % 7))
		}
		pcm <- frame
	}
	close(pcm)

	done := make(chan struct{})
	go func() {
		a.Consume(context.Background(), pcm, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not return after channel close")
	}
	assert.Equal(t, 3, feed.Len())
}

func TestConsumeStopsOnCancel(t *testing.T) {
	a, err := NewAnalyzer(testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Consume(ctx, make(chan []int16), 2)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not stop after cancel")
	}
}
