// Package search implements the search/match kernel: multi-offset
// query fingerprinting, head-trimming sweep over corpus segments, and
// MSE-minimising sliding-window comparison, parallelised over
// offsets x trims.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/soundprint/internal/audio"
	"github.com/himanishpuri/soundprint/internal/index"
	"github.com/himanishpuri/soundprint/internal/spectrogram"
	"github.com/himanishpuri/soundprint/internal/workerpool"
	"github.com/himanishpuri/soundprint/pkg/logger"
)

// Config holds the search-shape parameters.
type Config struct {
	MaxError           float32
	NResults           int
	ExtraOffsets       int
	SegmentTrimSize    int
	SegmentTrimStep    int
	MinVectors         int
	SpectrogramPadding int

	Concurrency int

	Logger *logger.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithConcurrency sets the worker pool size. Default: 0 (unbounded).
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns a Config with the defaults named by the original
// search tool's CLI surface.
func DefaultConfig() Config {
	return Config{
		MaxError:           5.0,
		NResults:           10,
		ExtraOffsets:       50,
		SegmentTrimSize:    20,
		SegmentTrimStep:    3,
		MinVectors:         1,
		SpectrogramPadding: 3,
		Concurrency:        0,
	}
}

// Match is one ranked result.
type Match struct {
	Title        string
	MSE          float32
	NegScaledMSE float32
	Confidence   float32
}

// Run loads the index, decodes the query, sweeps offsets and trims, and
// returns the top NResults matches ranked ascending by MSE.
func Run(ctx context.Context, indexPath, queryPath string, cfg Config, opts ...Option) ([]Match, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	idx, err := index.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("search: loading index: %w", err)
	}
	cfg.Logger.Infof("search: loaded index with %d segments", len(idx.Segments))

	samples, sampleRate, err := decodeFully(ctx, queryPath)
	if err != nil {
		return nil, fmt.Errorf("search: decoding query: %w", err)
	}
	cfg.Logger.Infof("search: decoded query (%d samples at %d Hz)", len(samples), sampleRate)

	slices := buildQuerySlices(samples, sampleRate, idx.BuildSettings, cfg.ExtraOffsets)
	trims := buildSegmentTrims(idx.Segments, cfg.SegmentTrimSize, cfg.SegmentTrimStep)
	cfg.Logger.Infof("search: sweeping %d offsets x %d trims", len(slices), len(trims))

	pool := workerpool.New(cfg.Concurrency)

	tasks := make([]func(context.Context) (map[int]float32, error), 0, len(slices)*len(trims))
	for _, slice := range slices {
		for _, trim := range trims {
			slice, trim := slice, trim
			tasks = append(tasks, func(ctx context.Context) (map[int]float32, error) {
				return scoreTask(slice, sampleRate, idx.BuildSettings, trim, cfg)
			})
		}
	}

	taskResults := workerpool.Run(ctx, pool, tasks)
	cfg.Logger.Infof("search: scored %d offset/trim tasks", len(taskResults))

	merged := make(map[int]float32)
	for _, result := range taskResults {
		for segIdx, mse := range result {
			if cur, ok := merged[segIdx]; !ok || mse < cur {
				merged[segIdx] = mse
			}
		}
	}

	type scored struct {
		index int
		mse   float32
	}
	ranked := make([]scored, 0, len(merged))
	for idx, mse := range merged {
		ranked = append(ranked, scored{index: idx, mse: mse})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].mse < ranked[j].mse })

	if len(ranked) > cfg.NResults {
		ranked = ranked[:cfg.NResults]
	}

	maxObserved := float32(math.Inf(1))
	if len(ranked) > 0 {
		maxObserved = ranked[0].mse
		for _, r := range ranked {
			if r.mse > maxObserved {
				maxObserved = r.mse
			}
		}
	}

	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		m := Match{
			Title: idx.Segments[r.index].Title,
			MSE:   r.mse,
		}
		if maxObserved != 0 {
			m.NegScaledMSE = 1 - r.mse/maxObserved
		}
		if cfg.MaxError != 0 {
			m.Confidence = (cfg.MaxError - r.mse) / cfg.MaxError
		}
		matches = append(matches, m)
		cfg.Logger.Infof("search: %s mse=%.4f confidence=%.4f", m.Title, m.MSE, m.Confidence)
	}

	return matches, nil
}

// decodeFully decodes an audio file in full, returning its raw mono
// samples at the source's native rate (bounded, unlike corpus files).
func decodeFully(ctx context.Context, path string) ([]float32, int, error) {
	src := audio.NewSource(path)
	stream, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	var samples []float32
	for {
		v, ok := stream.Next()
		if !ok {
			break
		}
		samples = append(samples, v)
	}
	return samples, stream.SampleRate(), nil
}

// buildQuerySlices constructs the offset sweep: for
// k in [0, extraOffsets], a view of samples from
// k * sampleRate * fftSize / (resampleRate * extraOffsets) to the end.
func buildQuerySlices(samples []float32, sampleRate int, settings index.BuildSettings, extraOffsets int) [][]float32 {
	if extraOffsets <= 0 {
		return [][]float32{samples}
	}

	slices := make([][]float32, 0, extraOffsets+1)
	for k := 0; k <= extraOffsets; k++ {
		offset := k * sampleRate * int(settings.FFTSize) / (int(settings.ResampleRate) * extraOffsets)
		if offset > len(samples) {
			offset = len(samples)
		}
		slices = append(slices, samples[offset:])
	}
	return slices
}

// trimmedSegment is a view of a corpus segment with its head removed.
type trimmedSegment struct {
	originalIndex int
	title         string
	vectors       [][]float32
}

// buildSegmentTrims constructs the trim sweep: for
// t in {0, step, 2*step, ..., <= trimSize}, a view of every segment with
// its first min(t, len) vectors removed.
func buildSegmentTrims(segments []index.Segment, trimSize, trimStep int) [][]trimmedSegment {
	if trimStep <= 0 {
		trimStep = 1
	}

	var trimAmounts []int
	for t := 0; t <= trimSize; t += trimStep {
		trimAmounts = append(trimAmounts, t)
	}
	if len(trimAmounts) == 0 {
		trimAmounts = []int{0}
	}

	trims := make([][]trimmedSegment, 0, len(trimAmounts))
	for _, t := range trimAmounts {
		view := make([]trimmedSegment, len(segments))
		for i, seg := range segments {
			cut := t
			if cut > len(seg.Vectors) {
				cut = len(seg.Vectors)
			}
			view[i] = trimmedSegment{originalIndex: i, title: seg.Title, vectors: seg.Vectors[cut:]}
		}
		trims = append(trims, view)
	}
	return trims
}

// scoreTask runs the transform stack on one query slice, pads the
// resulting spectrogram, and scores it against one trim set of segments.
func scoreTask(slice []float32, sampleRate int, settings index.BuildSettings, trim []trimmedSegment, cfg Config) (map[int]float32, error) {
	resampler, err := audio.NewResampler(&sliceSource{samples: slice}, sampleRate, int(settings.ResampleRate), int(settings.ResampleChunkSize), int(settings.ResampleSubChunks))
	if err != nil {
		return nil, err
	}

	gen := spectrogram.NewGenerator(resampler, spectrogram.Settings{
		FFTLen:     int(settings.FFTSize),
		FFTOverlap: int(settings.FFTOverlap),
	})
	binner := spectrogram.NewLogBinner(gen, spectrogram.LogSettings{
		Height:       int(settings.SpectrogramHeight),
		MaxFrequency: int(settings.SpectrogramMaxFrequency),
		ResampleRate: int(settings.ResampleRate),
		FFTLen:       int(settings.FFTSize),
	})

	var cols [][]float32
	for {
		col, ok := binner.Next()
		if !ok {
			break
		}
		cols = append(cols, col)
	}

	cols = padSpectrogram(cols, cfg.SpectrogramPadding, int(settings.SpectrogramHeight))

	scores := make(map[int]float32)
	for _, seg := range trim {
		if len(seg.vectors) < cfg.MinVectors || len(seg.vectors) > len(cols) {
			continue
		}

		minError := float32(math.Inf(1))
		windowLen := len(seg.vectors)
		for start := 0; start+windowLen <= len(cols); start++ {
			var sum float32
			for i := 0; i < windowLen; i++ {
				sum += distanceSq(cols[start+i], seg.vectors[i])
			}
			errVal := sum / float32(windowLen)
			if errVal < minError {
				minError = errVal
			}
		}

		if minError > cfg.MaxError {
			continue
		}
		scores[seg.originalIndex] = minError
	}

	return scores, nil
}

// padSpectrogram pads n zero columns at both ends of cols.
func padSpectrogram(cols [][]float32, n, height int) [][]float32 {
	if n <= 0 {
		return cols
	}
	padded := make([][]float32, 0, len(cols)+2*n)
	for i := 0; i < n; i++ {
		padded = append(padded, make([]float32, height))
	}
	padded = append(padded, cols...)
	for i := 0; i < n; i++ {
		padded = append(padded, make([]float32, height))
	}
	return padded
}

// distanceSq is the sum of squared differences between two equal-length
// vectors.
func distanceSq(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// sliceSource adapts an in-memory sample slice to audio.Puller so the
// resampler can be reused unchanged for already-decoded query slices.
type sliceSource struct {
	samples []float32
	pos     int
}

func (s *sliceSource) Next() (float32, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	v := s.samples[s.pos]
	s.pos++
	return v, true
}
