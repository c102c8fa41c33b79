package spectrogram

import (
	"math"
	"testing"
)

func TestHannWindowEndpointsAndSymmetry(t *testing.T) {
	const n = 64
	w := generateHannWindow(n)

	if w[0] != 0 {
		t.Errorf("w[0] = %v, want 0", w[0])
	}
	if math.Abs(w[n/2]-1) > 1e-9 {
		t.Errorf("w[n/2] = %v, want 1", w[n/2])
	}
	for i := 1; i < n/2; i++ {
		diff := math.Abs(w[i] - w[n-i])
		if diff > 1e-9 {
			t.Errorf("asymmetry at i=%d: w[i]=%v w[n-i]=%v", i, w[i], w[n-i])
		}
	}
}

func TestPlannerCachesHannWindowByLength(t *testing.T) {
	p := &planner{hanns: make(map[int][]float64)}
	a := p.hannWindow(128)
	b := p.hannWindow(128)
	if &a[0] != &b[0] {
		t.Error("expected cached Hann window to be shared by reference")
	}
}

// chunkSource feeds a Generator from a pre-built list of fixed-size
// chunks, mimicking a Resampler's output.
type chunkSource struct {
	chunks [][]float32
	pos    int
}

func (c *chunkSource) Next() ([]float32, bool) {
	if c.pos >= len(c.chunks) {
		return nil, false
	}
	v := c.chunks[c.pos]
	c.pos++
	return v, true
}

func TestGeneratorEmitsHalfLengthColumns(t *testing.T) {
	samples := make([]float32, 256)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(i) / 16))
	}
	src := &chunkSource{chunks: [][]float32{samples}}
	gen := NewGenerator(src, Settings{FFTLen: 64, FFTOverlap: 16})

	count := 0
	for {
		col, ok := gen.Next()
		if !ok {
			break
		}
		if len(col) != 32 {
			t.Fatalf("column %d length = %d, want 32", count, len(col))
		}
		count++
		if count > 100 {
			t.Fatal("generator did not terminate")
		}
	}
	if count == 0 {
		t.Fatal("expected at least one column")
	}
}

func TestGeneratorEmptyStreamTerminatesWithoutEmitting(t *testing.T) {
	src := &chunkSource{chunks: nil}
	gen := NewGenerator(src, Settings{FFTLen: 64, FFTOverlap: 16})

	if _, ok := gen.Next(); ok {
		t.Fatal("expected no columns from an empty stream")
	}
}

func TestLogBinnerEmitsExactHeight(t *testing.T) {
	cols := [][]float32{
		make([]float32, 32),
		make([]float32, 32),
	}

	binner := NewLogBinner(&columnSource{cols: cols}, LogSettings{
		Height:       16,
		MaxFrequency: 8000,
		ResampleRate: 16000,
		FFTLen:       64,
	})

	n := 0
	for {
		col, ok := binner.Next()
		if !ok {
			break
		}
		if len(col) != 16 {
			t.Fatalf("LogColumn length = %d, want 16", len(col))
		}
		n++
	}
	if n != 2 {
		t.Fatalf("got %d columns, want 2", n)
	}
}

type columnSource struct {
	cols [][]float32
	pos  int
}

func (c *columnSource) Next() ([]float32, bool) {
	if c.pos >= len(c.cols) {
		return nil, false
	}
	v := c.cols[c.pos]
	c.pos++
	return v, true
}
