// Package audio implements the decode and resample stages of the
// transform pipeline: turning an arbitrary compressed audio file into a
// lazy, single-pass stream of mono float32 samples at a fixed target rate.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/soundprint/pkg/logger"
)

// pcmChunkFrames bounds how many interleaved frames are pulled from the
// decoder per PCMBuffer call; it has no bearing on correctness, only on
// how chunky the internal queue is.
const pcmChunkFrames = 4096

// Source wraps a path to a compressed audio file on disk. It has not yet
// been probed or opened.
type Source struct {
	path string
	log  *logger.Logger
}

// NewSource returns a Source for the file at path.
func NewSource(path string) *Source {
	return &Source{path: path, log: logger.GetLogger()}
}

// Stream is a lazy, single-pass sequence of mono float32 samples plus the
// declared source sample rate, produced by probing the container,
// selecting the default track, and decoding it.
type Stream struct {
	decoder    *wav.Decoder
	sampleRate int
	numChans   int
	bitDepth   int
	buf        *goaudio.IntBuffer
	queue      []float32
	qpos       int
	closer     func() error
	log        *logger.Logger
	failed     bool
}

// Open probes the source, normalizes it to PCM via ffmpeg/ffprobe, and
// returns a Stream ready to be pulled sample by sample. The normalization
// step preserves the source's native sample rate and channel layout;
// resampling to a fixed target rate is the Resampler's responsibility.
func (s *Source) Open(ctx context.Context) (*Stream, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := probeHasAudioStream(ctx, s.path); err != nil {
		return nil, err
	}

	tmpPath, err := normalizeToWAV(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("audio: opening normalized wav: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("audio: %w: normalized wav is not valid", ErrCannotProbe)
	}
	dec.ReadInfo()
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("audio: %w", ErrNoDefaultTrack)
	}

	buf := &goaudio.IntBuffer{
		Data: make([]int, pcmChunkFrames*int(dec.NumChans)),
		Format: &goaudio.Format{
			NumChannels: int(dec.NumChans),
			SampleRate:  int(dec.SampleRate),
		},
		SourceBitDepth: int(dec.BitDepth),
	}

	return &Stream{
		decoder:    dec,
		sampleRate: int(dec.SampleRate),
		numChans:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
		buf:        buf,
		log:        s.log,
		closer: func() error {
			closeErr := f.Close()
			os.Remove(tmpPath)
			return closeErr
		},
	}, nil
}

// SampleRate returns the source's declared sample rate (before any
// resampling).
func (s *Stream) SampleRate() int { return s.sampleRate }

// Close releases the underlying file handle and removes the temporary
// normalized WAV.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Next pulls the next mono sample (channel 0), refilling its internal
// queue from the decoder as needed. It returns ok=false at a clean
// end-of-stream or after a mid-stream decode error (which is logged and
// swallowed).
func (s *Stream) Next() (float32, bool) {
	for s.qpos >= len(s.queue) {
		if s.failed {
			return 0, false
		}
		if !s.fill() {
			return 0, false
		}
	}
	v := s.queue[s.qpos]
	s.qpos++
	return v, true
}

func (s *Stream) fill() bool {
	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		s.log.Warnf("audio: decode error, truncating stream: %v", err)
		s.failed = true
		return false
	}
	if n == 0 {
		return false
	}

	scale := float32(1.0)
	if s.bitDepth > 1 {
		scale = float32(int64(1) << uint(s.bitDepth-1))
	}

	frames := n / s.numChans
	s.queue = s.queue[:0]
	if cap(s.queue) < frames {
		s.queue = make([]float32, 0, frames)
	}
	for i := 0; i < frames; i++ {
		channel0 := s.buf.Data[i*s.numChans]
		s.queue = append(s.queue, float32(channel0)/scale)
	}
	s.qpos = 0
	return len(s.queue) > 0
}

func probeHasAudioStream(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("audio: %w: %v", ErrCannotProbe, err)
	}
	if len(out) == 0 {
		return fmt.Errorf("audio: %w", ErrNoDefaultTrack)
	}
	return nil
}

// normalizeToWAV shells out to ffmpeg to convert any supported container
// to a PCM16LE WAV at the source's native rate and channel layout, so
// decode can be treated as an opaque, lossless-conversion primitive.
func normalizeToWAV(ctx context.Context, inputPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "soundprint-decode-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	outPath := filepath.Join(tmpDir, "normalized.wav")

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-c:a", "pcm_s16le",
		outPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(tmpDir)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: ffmpeg failed: %v (%s)", ErrCodecUnsupported, err, out)
	}

	return outPath, nil
}
