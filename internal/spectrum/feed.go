package spectrum

import (
	"sync"
	"sync/atomic"
)

// DefaultFeedCapacity keeps staleness to at most two analysis blocks.
const DefaultFeedCapacity = 2

// Feed carries frames from the analyzer to the simulation tick loop.
// Sends never block: when the buffer is full the oldest pending frame is
// discarded so the consumer always finds the freshest data.
type Feed struct {
	ch      chan Frame
	evictMu sync.Mutex
	dropped atomic.Uint64
}

// NewFeed creates a feed holding up to capacity undelivered frames.
func NewFeed(capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{ch: make(chan Frame, capacity)}
}

// Send offers f to the consumer. It reports whether an older frame had to
// be discarded to make room.
func (f *Feed) Send(fr Frame) (dropped bool) {
	select {
	case f.ch <- fr:
		return false
	default:
	}

	f.evictMu.Lock()
	defer f.evictMu.Unlock()
	for {
		select {
		case f.ch <- fr:
			return dropped
		default:
		}
		select {
		case <-f.ch:
			dropped = true
			f.dropped.Add(1)
			feedDropped.Inc()
		default:
		}
	}
}

// Poll returns the oldest pending frame without waiting.
func (f *Feed) Poll() (Frame, bool) {
	select {
	case fr := <-f.ch:
		return fr, true
	default:
		return Frame{}, false
	}
}

// Latest drains everything pending and returns the most recent frame.
// ok is false when nothing arrived since the last drain.
func (f *Feed) Latest() (latest Frame, ok bool) {
	for {
		select {
		case fr := <-f.ch:
			latest, ok = fr, true
		default:
			return latest, ok
		}
	}
}

// Len returns the number of frames waiting.
func (f *Feed) Len() int {
	return len(f.ch)
}

// Cap returns the feed capacity.
func (f *Feed) Cap() int {
	return cap(f.ch)
}

// Dropped returns how many frames were discarded since creation.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}
