// Package stream fans decoded PCM out to everything that consumes the live
// audio: HTTP MP3 listeners, WebRTC peers and the spectrum analyzer.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is about three seconds of 20ms frames.
const DefaultBuffer = 150

// Broadcaster fans out PCM frames from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
	frames    atomic.Uint64
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C       chan []int16
	done    chan struct{}
	dropped atomic.Uint64
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Dropped counts frames skipped because C was full.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a listener with the default buffer.
func (b *Broadcaster) Subscribe() *Listener {
	return b.SubscribeN(DefaultBuffer)
}

// SubscribeN registers a listener whose channel holds n frames. Consumers
// that care about the present more than completeness, like the analyzer,
// use a small n.
func (b *Broadcaster) SubscribeN(n int) *Listener {
	l := &Listener{
		C:    make(chan []int16, max(n, 1)),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop. Calling it twice is safe.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.listeners[l]
	delete(b.listeners, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Frames returns how many frames have been fanned out to every listener.
func (b *Broadcaster) Frames() uint64 {
	return b.frames.Load()
}

// Run reads frames from source and fans out to all listeners.
// Slow listeners get frames dropped rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- frame:
				default:
					l.dropped.Add(1)
				}
			}
			b.mu.RUnlock()
			b.frames.Add(1)
		}
	}
}
