package audio

import (
	"context"
	"log"
	"sync"
	"time"
)

type decodedTrack struct {
	info    TrackInfo
	samples []int16
}

// Pipeline decodes tracks, applies crossfade, and outputs PCM frames at real-time rate.
type Pipeline struct {
	format  Format
	trackCh chan TrackInfo
	frameCh chan []int16
	skipCh  chan struct{}

	mu            sync.RWMutex
	crossfadeDur  time.Duration
	loop          bool
	currentTrack  TrackInfo
	trackPosition time.Duration
	trackDuration time.Duration
	played        int
}

// NewPipeline creates an audio pipeline producing frames in format f.
func NewPipeline(f Format, crossfadeDuration time.Duration) *Pipeline {
	return &Pipeline{
		format:       f,
		trackCh:      make(chan TrackInfo, 64),
		frameCh:      make(chan []int16, 100),
		skipCh:       make(chan struct{}, 1),
		crossfadeDur: crossfadeDuration,
	}
}

// Format returns the PCM layout of outgoing frames.
func (p *Pipeline) Format() Format {
	return p.format
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// Enqueue adds a track to the pipeline's playback queue.
func (p *Pipeline) Enqueue(t TrackInfo) {
	p.trackCh <- t
}

// QueueSize returns the number of tracks waiting in the queue.
func (p *Pipeline) QueueSize() int {
	return len(p.trackCh)
}

// Loop makes the pipeline replay every track it has decoded once the queue
// runs dry, so a playlist repeats forever.
func (p *Pipeline) Loop(on bool) {
	p.mu.Lock()
	p.loop = on
	p.mu.Unlock()
}

func (p *Pipeline) looping() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loop
}

// SetCrossfade changes the crossfade length from the next track boundary on.
func (p *Pipeline) SetCrossfade(d time.Duration) {
	p.mu.Lock()
	p.crossfadeDur = max(d, 0)
	p.mu.Unlock()
}

// Crossfade returns the crossfade length.
func (p *Pipeline) Crossfade() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.crossfadeDur
}

// Skip interrupts the current track.
func (p *Pipeline) Skip() {
	select {
	case p.skipCh <- struct{}{}:
	default:
	}
}

// Status returns current playback info.
func (p *Pipeline) Status() (track TrackInfo, position, duration time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentTrack, p.trackPosition, p.trackDuration
}

// Played returns how many tracks have started playing.
func (p *Pipeline) Played() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.played
}

// Run starts the pipeline. Blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	// Background decoder: converts file paths to decoded PCM
	decodedCh := make(chan *decodedTrack, 2)
	go p.decodeLoop(ctx, decodedCh)

	// Main playback loop
	var pending *decodedTrack
	var startFrame int

	for {
		var dt *decodedTrack

		if pending != nil {
			dt = pending
			pending = nil
		} else {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-decodedCh:
				if !ok {
					return
				}
				dt = d
				startFrame = 0
			}
		}

		next, nextStart := p.playTrack(ctx, ticker, decodedCh, dt, startFrame)
		if next != nil {
			pending = next
			startFrame = nextStart
		} else {
			startFrame = 0
		}
	}
}

// decodeLoop takes queued tracks first. When looping and the queue is empty
// it replays previously decoded tracks in their original order.
func (p *Pipeline) decodeLoop(ctx context.Context, decodedCh chan<- *decodedTrack) {
	defer close(decodedCh)

	var history []TrackInfo
	for {
		var t TrackInfo
		select {
		case <-ctx.Done():
			return
		case t = <-p.trackCh:
		default:
			if len(history) > 0 && p.looping() {
				t, history = history[0], history[1:]
				break
			}
			select {
			case <-ctx.Done():
				return
			case t = <-p.trackCh:
			}
		}

		samples, err := DecodeFile(t.Path, p.format)
		if err != nil {
			log.Printf("Decode failed %s: %v", t.Path, err)
			continue
		}
		if p.looping() {
			history = append(history, t)
		}
		select {
		case decodedCh <- &decodedTrack{info: t, samples: samples}:
		case <-ctx.Done():
			return
		}
	}
}

// overlapFrames is how many frames of dt overlap with the next track.
func (p *Pipeline) overlapFrames(totalFrames int) int {
	cf := int(p.Crossfade() / FrameDuration)
	// don't crossfade more than half the track
	return min(cf, totalFrames/2)
}

// playTrack plays a decoded track with crossfade into the next one if available.
// Returns the next decoded track and starting frame if a crossfade occurred.
func (p *Pipeline) playTrack(ctx context.Context, ticker *time.Ticker, decodedCh <-chan *decodedTrack, dt *decodedTrack, startFrame int) (*decodedTrack, int) {
	n := p.format.FrameSamples()
	samples := dt.samples
	totalFrames := len(samples) / n
	cfFrames := p.overlapFrames(totalFrames)
	cfStart := totalFrames - cfFrames

	p.setTrack(dt.info, totalFrames)
	log.Printf("Now playing: %s (frames: %d)", dt.info.Name, totalFrames)

	// Play pre-crossfade frames
	for i := startFrame; i < cfStart; i++ {
		if !p.sendFrame(ctx, ticker, samples[i*n:(i+1)*n]) {
			return nil, 0
		}
		p.updatePosition(i)
	}

	// Try to get next decoded track for crossfade
	var next *decodedTrack
	if cfFrames > 0 {
		select {
		case d := <-decodedCh:
			next = d
		default:
		}
	}

	if next != nil {
		// Crossfade zone: blend outgoing with incoming
		for i := 0; i < cfFrames; i++ {
			outPos := (cfStart + i) * n
			inPos := i * n

			if outPos+n > len(samples) || inPos+n > len(next.samples) {
				break
			}

			progress := float64(i) / float64(cfFrames)
			frame := CrossfadeFrames(samples[outPos:outPos+n], next.samples[inPos:inPos+n], progress)

			if !p.sendFrame(ctx, ticker, frame) {
				return nil, 0
			}
			p.updatePosition(cfStart + i)
		}

		log.Printf("Crossfaded into: %s", next.info.Name)
		return next, cfFrames
	}

	// No next track available: play remaining frames without crossfade
	for i := cfStart; i < totalFrames; i++ {
		if !p.sendFrame(ctx, ticker, samples[i*n:(i+1)*n]) {
			return nil, 0
		}
		p.updatePosition(i)
	}

	return nil, 0
}

// sendFrame waits for the ticker then sends a frame. Returns false on skip or cancel.
func (p *Pipeline) sendFrame(ctx context.Context, ticker *time.Ticker, frame []int16) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.skipCh:
		log.Println("Track skipped")
		return false
	case <-ticker.C:
	}

	select {
	case p.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) setTrack(info TrackInfo, totalFrames int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentTrack = info
	p.trackPosition = 0
	p.trackDuration = time.Duration(totalFrames) * FrameDuration
	p.played++
}

func (p *Pipeline) updatePosition(frameIdx int) {
	p.mu.Lock()
	p.trackPosition = time.Duration(frameIdx) * FrameDuration
	p.mu.Unlock()
}
