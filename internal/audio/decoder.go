package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dh1tw/gosamplerate"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrEmptyTrack means a file decoded to zero samples.
var ErrEmptyTrack = errors.New("track has no audio")

// pcm is decoded audio before it is fitted to the pipeline format.
type pcm struct {
	data     []float32 // interleaved, nominally [-1, 1]
	rate     int
	channels int
}

// DecodeFile decodes path to interleaved int16 samples in format f.
// WAV and MP3 are decoded in-process and resampled with libsamplerate when
// their rate differs; everything else goes through FFmpeg.
func DecodeFile(path string, f Format) ([]int16, error) {
	var (
		p   pcm
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		p, err = decodeWAV(path)
	case ".mp3":
		p, err = decodeMP3(path)
	default:
		return decodeFFmpeg(path, f)
	}
	if err != nil {
		return nil, err
	}
	if len(p.data) == 0 {
		return nil, fmt.Errorf("decode %s: %w", path, ErrEmptyTrack)
	}
	return p.convert(f)
}

func decodeWAV(path string) (pcm, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return pcm{}, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("decode wav %s: %w", path, err)
	}
	bitDepth := int(d.SampleBitDepth())
	if bitDepth == 0 || buf.Format == nil || buf.Format.NumChannels == 0 {
		return pcm{}, fmt.Errorf("unknown sample format in WAV file: %s", path)
	}

	out := pcm{
		data:     make([]float32, len(buf.Data)),
		rate:     buf.Format.SampleRate,
		channels: buf.Format.NumChannels,
	}
	// 8-bit WAV is unsigned, everything wider is signed.
	factor := float32(math.Pow(2, float64(bitDepth-1)))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	for i, v := range buf.Data {
		out.data[i] = float32(v-offset) / factor
	}
	return out, nil
}

func decodeMP3(path string) (pcm, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm{}, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return pcm{}, fmt.Errorf("decode mp3 %s: %w", path, err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return pcm{}, fmt.Errorf("decode mp3 %s: %w", path, err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	out := pcm{
		data:     make([]float32, len(raw)/2),
		rate:     d.SampleRate(),
		channels: 2,
	}
	for i := range out.data {
		out.data[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return out, nil
}

// decodeFFmpeg lets FFmpeg handle formats we have no decoder for.
func decodeFFmpeg(path string, f Format) ([]int16, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode %s: %w", path, ErrEmptyTrack)
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return samples, nil
}

// convert resamples, remaps channels and quantizes to int16.
func (p pcm) convert(f Format) ([]int16, error) {
	data := p.data
	if p.rate != f.SampleRate {
		if p.rate <= 0 {
			return nil, fmt.Errorf("resample: invalid source rate %d", p.rate)
		}
		var err error
		data, err = gosamplerate.Simple(data, float64(f.SampleRate)/float64(p.rate), p.channels, gosamplerate.SRC_SINC_MEDIUM_QUALITY)
		if err != nil {
			return nil, fmt.Errorf("resample %d->%d Hz: %w", p.rate, f.SampleRate, err)
		}
	}

	frames := len(data) / p.channels
	out := make([]int16, frames*f.Channels)
	for i := 0; i < frames; i++ {
		src := data[i*p.channels : (i+1)*p.channels]
		dst := out[i*f.Channels : (i+1)*f.Channels]
		if f.Channels == 1 {
			var sum float32
			for _, s := range src {
				sum += s
			}
			dst[0] = quantize(sum / float32(len(src)))
			continue
		}
		// Mono is duplicated; extra source channels beyond the target are dropped.
		for c := range dst {
			dst[c] = quantize(src[min(c, len(src)-1)])
		}
	}
	return out, nil
}

func quantize(v float32) int16 {
	if v != v {
		return 0
	}
	s := v * 32768
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
