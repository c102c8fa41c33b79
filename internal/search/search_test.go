package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/himanishpuri/soundprint/internal/index"
)

func TestDistanceSqIsSumOfSquaredDifferences(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 0, 5}
	got := distanceSq(a, b)
	want := float32(0 + 4 + 4)
	if got != want {
		t.Errorf("distanceSq = %v, want %v", got, want)
	}
}

func TestPadSpectrogramAddsNColumnsAtBothEnds(t *testing.T) {
	cols := [][]float32{{1, 2}, {3, 4}}
	padded := padSpectrogram(cols, 3, 2)

	if len(padded) != len(cols)+6 {
		t.Fatalf("len(padded) = %d, want %d", len(padded), len(cols)+6)
	}
	for i := 0; i < 3; i++ {
		for _, v := range padded[i] {
			if v != 0 {
				t.Errorf("expected zero padding at head index %d", i)
			}
		}
	}
	for i := len(padded) - 3; i < len(padded); i++ {
		for _, v := range padded[i] {
			if v != 0 {
				t.Errorf("expected zero padding at tail index %d", i)
			}
		}
	}
}

func TestPadSpectrogramNoopWhenPaddingIsZero(t *testing.T) {
	cols := [][]float32{{1, 2}}
	padded := padSpectrogram(cols, 0, 2)
	if len(padded) != 1 {
		t.Fatalf("len(padded) = %d, want 1", len(padded))
	}
}

func TestBuildSegmentTrimsRemovesLeadingVectors(t *testing.T) {
	segments := []index.Segment{
		{Title: "a", Vectors: [][]float32{{1}, {2}, {3}, {4}}},
	}
	trims := buildSegmentTrims(segments, 2, 1)

	// t in {0, 1, 2}
	if len(trims) != 3 {
		t.Fatalf("got %d trim sets, want 3", len(trims))
	}
	if len(trims[0][0].vectors) != 4 {
		t.Errorf("trim 0: got %d vectors, want 4", len(trims[0][0].vectors))
	}
	if len(trims[1][0].vectors) != 3 {
		t.Errorf("trim 1: got %d vectors, want 3", len(trims[1][0].vectors))
	}
	if len(trims[2][0].vectors) != 2 {
		t.Errorf("trim 2: got %d vectors, want 2", len(trims[2][0].vectors))
	}
}

func TestBuildSegmentTrimsClampsWhenTrimExceedsLength(t *testing.T) {
	segments := []index.Segment{
		{Title: "short", Vectors: [][]float32{{1}, {2}}},
	}
	trims := buildSegmentTrims(segments, 5, 5)
	last := trims[len(trims)-1]
	if len(last[0].vectors) != 0 {
		t.Errorf("expected fully trimmed segment, got %d vectors", len(last[0].vectors))
	}
}

func TestMergeReducerIsCommutativeUnderTaskOrdering(t *testing.T) {
	taskResults := []map[int]float32{
		{0: 3.0, 1: 5.0},
		{0: 1.5, 2: 2.0},
		{1: 0.5, 2: 9.0},
	}

	mergeOnce := func(order []int) map[int]float32 {
		merged := make(map[int]float32)
		for _, idx := range order {
			for segIdx, mse := range taskResults[idx] {
				if cur, ok := merged[segIdx]; !ok || mse < cur {
					merged[segIdx] = mse
				}
			}
		}
		return merged
	}

	base := mergeOnce([]int{0, 1, 2})

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		order := rng.Perm(len(taskResults))
		got := mergeOnce(order)
		for k, v := range base {
			if got[k] != v {
				t.Fatalf("trial %d: merged[%d] = %v, want %v", trial, k, got[k], v)
			}
		}
	}
}

func TestBuildQuerySlicesSweepsOffsets(t *testing.T) {
	samples := make([]float32, 100)
	settings := index.BuildSettings{FFTSize: 10, ResampleRate: 10}
	slices := buildQuerySlices(samples, 10, settings, 4)

	if len(slices) != 5 {
		t.Fatalf("got %d slices, want 5", len(slices))
	}
	if len(slices[0]) != 100 {
		t.Errorf("first slice should start at offset 0, got len %d", len(slices[0]))
	}
	for i := 1; i < len(slices); i++ {
		if len(slices[i]) >= len(slices[i-1]) {
			t.Errorf("slice %d should be shorter than slice %d", i, i-1)
		}
	}
}

func TestBuildQuerySlicesNoExtraOffsetsReturnsWholeSlice(t *testing.T) {
	samples := make([]float32, 10)
	slices := buildQuerySlices(samples, 10, index.BuildSettings{}, 0)
	if len(slices) != 1 || len(slices[0]) != 10 {
		t.Fatalf("got %v, want a single full-length slice", slices)
	}
}

func TestDistanceSqSymmetric(t *testing.T) {
	a := []float32{float32(math.Pi), 2, 3}
	b := []float32{1, 2, 3}
	if distanceSq(a, b) != distanceSq(b, a) {
		t.Error("distanceSq should be symmetric")
	}
}
