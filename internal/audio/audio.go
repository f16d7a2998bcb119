package audio

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	BitDepth          = 16
	FrameDuration     = 20 * time.Millisecond
)

// Format is the PCM layout every stage of the pipeline agrees on:
// interleaved int16 at SampleRate with Channels channels.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is 48kHz stereo, the native Opus rate.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// FrameSize is samples per channel per 20ms frame.
func (f Format) FrameSize() int {
	return f.SampleRate * int(FrameDuration/time.Millisecond) / 1000
}

// FrameSamples is total interleaved samples per frame.
func (f Format) FrameSamples() int {
	return f.FrameSize() * f.Channels
}

// FrameBytes is bytes per frame (int16 = 2 bytes).
func (f Format) FrameBytes() int {
	return f.FrameSamples() * 2
}

// TrackInfo identifies a playlist entry.
type TrackInfo struct {
	ID   string
	Path string
	Name string // display name, usually the file's base name
}

// NewTrack builds a TrackInfo for a file, named after its base name.
func NewTrack(path string) TrackInfo {
	base := filepath.Base(path)
	return TrackInfo{
		ID:   uuid.NewString(),
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}
