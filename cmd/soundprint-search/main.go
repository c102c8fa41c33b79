// Command soundprint-search decodes a query audio file, sweeps offsets
// and segment head-trims against a pre-built index, and reports the
// best-matching corpus entries by mean-squared distance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/himanishpuri/soundprint/internal/search"
	"github.com/himanishpuri/soundprint/pkg/logger"
)

type commandOutput struct {
	Matches []matchOutput `json:"matches"`
}

type matchOutput struct {
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

func main() {
	log := logger.GetLogger()

	defaults := search.DefaultConfig()
	flagSet := flag.NewFlagSet("soundprint-search", flag.ExitOnError)
	maxError := flagSet.Float64("max-error", float64(defaults.MaxError), "maximum mse to consider windows at")
	nResults := flagSet.Int("n-results", defaults.NResults, "number of results to display")
	extraOffsets := flagSet.Int("extra-offsets", defaults.ExtraOffsets, "number of extra sub-frame offsets to sweep")
	segmentTrimSize := flagSet.Int("segment-trim-size", defaults.SegmentTrimSize, "maximum number of leading vectors to trim from each segment")
	segmentTrimStep := flagSet.Int("segment-trim-step", defaults.SegmentTrimStep, "step size between trim amounts")
	minVectors := flagSet.Int("min-vectors", defaults.MinVectors, "minimum segment length to consider")
	spectrogramPadding := flagSet.Int("spectrogram-padding", defaults.SpectrogramPadding, "zero columns padded at both ends of the query spectrogram")
	concurrency := flagSet.Int("concurrency", 0, "worker pool size (0 = unbounded)")
	jsonOutput := flagSet.Bool("json", false, "write a json object with the results to stdout")

	flagSet.Parse(os.Args[1:])

	if flagSet.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: soundprint-search [flags] <LOOKUP_FILE> <AUDIO_FILE>")
		os.Exit(1)
	}
	lookupFile := flagSet.Arg(0)
	audioFile := flagSet.Arg(1)

	cfg := search.Config{
		MaxError:           float32(*maxError),
		NResults:           *nResults,
		ExtraOffsets:       *extraOffsets,
		SegmentTrimSize:    *segmentTrimSize,
		SegmentTrimStep:    *segmentTrimStep,
		MinVectors:         *minVectors,
		SpectrogramPadding: *spectrogramPadding,
		Concurrency:        *concurrency,
		Logger:             log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	matches, err := search.Run(ctx, lookupFile, audioFile, cfg)
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	if *jsonOutput {
		out := commandOutput{Matches: make([]matchOutput, 0, len(matches))}
		for _, m := range matches {
			out.Matches = append(out.Matches, matchOutput{Title: m.Title, Score: m.MSE})
		}
		encoded, err := json.Marshal(out)
		if err != nil {
			log.Fatalf("search: encoding json output: %v", err)
		}
		fmt.Print(string(encoded))
		return
	}

	if len(matches) == 0 {
		log.Info("search: no matches found")
		return
	}
	for i, m := range matches {
		log.Infof("%4d: %s (mse=%.4f, confidence=%.4f)", i, m.Title, m.MSE, m.Confidence)
	}
}
