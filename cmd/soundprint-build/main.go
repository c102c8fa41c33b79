// Command soundprint-build walks one or more search directories, runs the
// decode/resample/spectrogram/log-rebin pipeline over every audio file
// found, and writes a binary index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/soundprint/internal/build"
	"github.com/himanishpuri/soundprint/pkg/logger"
)

// stringList collects repeated flag occurrences, matching the original
// tool's repeatable `--search`/`--ignore` flags.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	log := logger.GetLogger()

	var searchDirs, ignorePaths stringList
	flagSet := flag.NewFlagSet("soundprint-build", flag.ExitOnError)
	flagSet.Var(&searchDirs, "search", "directory to search for audio files (repeatable)")
	flagSet.Var(&ignorePaths, "ignore", "path to ignore (repeatable)")
	outFile := flagSet.String("out", "", "output index path")

	defaults := build.DefaultConfig()
	fftSize := flagSet.Int("fft-size", defaults.FFTSize, "samples per fft")
	fftOverlap := flagSet.Int("fft-overlap", defaults.FFTOverlap, "samples each fft overlaps with the previous")
	height := flagSet.Int("spectrogram-height", defaults.SpectrogramHeight, "log spectrogram height")
	maxFreq := flagSet.String("spectrogram-max-frequency", strconv.Itoa(defaults.SpectrogramMaxFrequency), "maximum frequency of the log spectrogram (accepts a trailing k)")
	resampleRate := flagSet.String("resample-rate", strconv.Itoa(defaults.ResampleRate), "rate audio is resampled to before processing (accepts a trailing k)")
	flagSet.StringVar(resampleRate, "r", strconv.Itoa(defaults.ResampleRate), "shorthand for -resample-rate")
	resampleSubChunks := flagSet.Int("resample-sub-chunks", defaults.ResampleSubChunks, "number of sub chunks used by the resampler")
	resampleChunkSize := flagSet.Int("resample-chunk-size", defaults.ResampleChunkSize, "input chunk size for the resampler")
	concurrency := flagSet.Int("concurrency", 0, "worker pool size (0 = unbounded)")
	debugImageDir := flagSet.String("debug-image", "", "if set, write a debug spectrogram png per file into this directory")

	flagSet.Parse(os.Args[1:])

	if flagSet.NArg() > 0 && *outFile == "" {
		*outFile = flagSet.Arg(0)
	}
	if *outFile == "" {
		log.Fatalf("build: an output path is required (positional argument or --out)")
	}
	if len(searchDirs) == 0 {
		log.Fatalf("build: at least one --search directory is required")
	}

	parsedMaxFreq, err := parseFrequency(*maxFreq)
	if err != nil {
		log.Fatalf("build: --spectrogram-max-frequency: %v", err)
	}
	parsedResampleRate, err := parseFrequency(*resampleRate)
	if err != nil {
		log.Fatalf("build: --resample-rate: %v", err)
	}

	cfg := build.Config{
		SearchDirs:              searchDirs,
		IgnorePaths:             ignorePaths,
		OutPath:                 *outFile,
		FFTSize:                 *fftSize,
		FFTOverlap:              *fftOverlap,
		SpectrogramHeight:       *height,
		SpectrogramMaxFrequency: parsedMaxFreq,
		ResampleRate:            parsedResampleRate,
		ResampleChunkSize:       *resampleChunkSize,
		ResampleSubChunks:       *resampleSubChunks,
		Concurrency:             *concurrency,
		DebugImageDir:           *debugImageDir,
		Logger:                  log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	if err := build.Run(ctx, cfg); err != nil {
		log.Fatalf("build: %v", err)
	}
}

// parseFrequency parses a frequency string like "16000", "16k", or
// "16000hz" into a plain integer Hz value.
func parseFrequency(input string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(input))
	lower = strings.TrimSuffix(lower, "hz")

	multiplier := 1
	if strings.HasSuffix(lower, "k") {
		multiplier = 1000
		lower = strings.TrimSuffix(lower, "k")
	}

	value, err := strconv.Atoi(strings.TrimSpace(lower))
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", input, err)
	}
	return value * multiplier, nil
}
