// Package build implements the corpus build driver: walking a set
// of search directories, running the decode/resample/spectrogram/log-rebin
// pipeline per file in a bounded worker pool, and assembling the results
// into a written index.
package build

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/soundprint/internal/audio"
	"github.com/himanishpuri/soundprint/internal/index"
	"github.com/himanishpuri/soundprint/internal/spectrogram"
	"github.com/himanishpuri/soundprint/internal/workerpool"
	"github.com/himanishpuri/soundprint/pkg/logger"
	"github.com/himanishpuri/soundprint/pkg/utils"
)

// Config holds the build parameters, assembled via the functional-options
// pattern below.
type Config struct {
	SearchDirs  []string
	IgnorePaths []string
	OutPath     string

	FFTSize                 int
	FFTOverlap              int
	SpectrogramHeight       int
	SpectrogramMaxFrequency int
	ResampleRate            int
	ResampleChunkSize       int
	ResampleSubChunks       int

	Concurrency   int
	DebugImageDir string

	Logger *logger.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithConcurrency sets the worker pool size. Default: 0 (unbounded).
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

// WithDebugImageDir enables the opt-in PNG debug spectrogram writer,
// writing one image per processed file into dir.
func WithDebugImageDir(dir string) Option {
	return func(c *Config) { c.DebugImageDir = dir }
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns a Config with the defaults named in the original
// build tool's CLI surface: a ~32768 Hz sample/FFT size, a quarter
// overlap, a 200-bin log height.
func DefaultConfig() Config {
	const defaultSampleRate = 2 << 14
	return Config{
		FFTSize:                 defaultSampleRate,
		FFTOverlap:              defaultSampleRate / 4,
		SpectrogramHeight:       200,
		SpectrogramMaxFrequency: defaultSampleRate / 2,
		ResampleRate:            defaultSampleRate,
		ResampleChunkSize:       2 << 16,
		ResampleSubChunks:       1,
		Concurrency:             0,
	}
}

// Run executes the build: enumerate files, transform each in the worker
// pool, assemble and persist the index. Per-file failures and unreadable
// paths are logged and omitted; the build only fails if the index cannot
// be written, or if a requested debug image directory cannot be created.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	if cfg.DebugImageDir != "" {
		if err := utils.MakeDir(cfg.DebugImageDir); err != nil {
			return fmt.Errorf("build: creating debug image directory: %w", err)
		}
	}

	files, err := enumerateFiles(cfg.SearchDirs, cfg.IgnorePaths)
	if err != nil {
		return fmt.Errorf("build: enumerating files: %w", err)
	}
	cfg.Logger.Infof("build: found %d candidate files", len(files))

	settings := spectrogram.Settings{FFTLen: cfg.FFTSize, FFTOverlap: cfg.FFTOverlap}
	logSettings := spectrogram.LogSettings{
		Height:       cfg.SpectrogramHeight,
		MaxFrequency: cfg.SpectrogramMaxFrequency,
		ResampleRate: cfg.ResampleRate,
		FFTLen:       cfg.FFTSize,
	}

	pool := workerpool.New(cfg.Concurrency)

	tasks := make([]func(context.Context) (index.Segment, error), 0, len(files))
	for _, path := range files {
		path := path
		tasks = append(tasks, func(ctx context.Context) (index.Segment, error) {
			seg, err := processFile(ctx, path, cfg, settings, logSettings)
			if err != nil {
				cfg.Logger.Warnf("build: skipping %s: %v", path, err)
				return index.Segment{}, err
			}
			return seg, nil
		})
	}

	segments := workerpool.Run(ctx, pool, tasks)
	cfg.Logger.Infof("build: transformed %d of %d files", len(segments), len(files))

	out := &index.File{
		BuildSettings: index.BuildSettings{
			FFTSize:                 uint32(cfg.FFTSize),
			FFTOverlap:              uint32(cfg.FFTOverlap),
			SpectrogramHeight:       uint32(cfg.SpectrogramHeight),
			SpectrogramMaxFrequency: uint32(cfg.SpectrogramMaxFrequency),
			ResampleRate:            uint32(cfg.ResampleRate),
			ResampleChunkSize:       uint32(cfg.ResampleChunkSize),
			ResampleSubChunks:       uint32(cfg.ResampleSubChunks),
		},
		Segments: segments,
	}
	out.SortSegments()

	if err := out.WriteFile(cfg.OutPath); err != nil {
		return fmt.Errorf("build: writing index: %w", err)
	}
	cfg.Logger.Infof("build: wrote index with %d segments to %s", len(out.Segments), cfg.OutPath)
	return nil
}

// processFile runs the full decode/resample/spectrogram/log-rebin
// pipeline over one file and collects its LogColumns into a Segment.
func processFile(ctx context.Context, path string, cfg Config, settings spectrogram.Settings, logSettings spectrogram.LogSettings) (index.Segment, error) {
	src := audio.NewSource(path)
	stream, err := src.Open(ctx)
	if err != nil {
		return index.Segment{}, err
	}
	defer stream.Close()

	resampler, err := audio.NewResampler(stream, stream.SampleRate(), cfg.ResampleRate, cfg.ResampleChunkSize, cfg.ResampleSubChunks)
	if err != nil {
		return index.Segment{}, err
	}

	gen := spectrogram.NewGenerator(resampler, settings)
	binner := spectrogram.NewLogBinner(gen, logSettings)

	vectors := make([][]float32, 0)
	for {
		col, ok := binner.Next()
		if !ok {
			break
		}
		vectors = append(vectors, col)
	}

	if cfg.DebugImageDir != "" {
		if err := writeDebugImage(cfg.DebugImageDir, path, vectors); err != nil {
			cfg.Logger.Warnf("build: debug image failed for %s: %v", path, err)
		}
	}

	return index.Segment{Title: path, Vectors: vectors}, nil
}

// enumerateFiles recursively walks each search directory, skipping any
// path that canonicalizes to an ignore path and any file named .gitignore.
// Paths that cannot be read are logged and skipped. The walk does not
// follow symbolic links: a link is listed as a single path, and a link to
// a directory is not descended into.
func enumerateFiles(searchDirs, ignorePaths []string) ([]string, error) {
	ignoreSet := make(map[string]struct{}, len(ignorePaths))
	for _, p := range ignorePaths {
		canon, err := canonicalize(p)
		if err != nil {
			continue
		}
		ignoreSet[canon] = struct{}{}
	}

	var files []string
	for _, dir := range searchDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.GetLogger().Warnf("build: skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Base(path), ".gitignore") {
				return nil
			}
			canon, err := canonicalize(path)
			if err != nil {
				canon = path
			}
			if _, skip := ignoreSet[canon]; skip {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
