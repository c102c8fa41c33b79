package spectrogram

import "testing"

func TestCutoffBinRounding(t *testing.T) {
	s := LogSettings{MaxFrequency: 8000, ResampleRate: 16000, FFTLen: 1024}
	// round(8000 * 1024 / 16000) = round(512) = 512
	if got := s.CutoffBin(); got != 512 {
		t.Errorf("CutoffBin() = %d, want 512", got)
	}
}

func TestLogBinnerZeroExtendsWhenCutoffExceedsHalfFFT(t *testing.T) {
	// max_frequency == resample_rate (cutoff == fft_len), far beyond fft_len/2.
	src := &columnSource{cols: [][]float32{{1, 2, 3, 4}}}
	binner := NewLogBinner(src, LogSettings{
		Height:       4,
		MaxFrequency: 8000,
		ResampleRate: 8000,
		FFTLen:       8,
	})

	col, ok := binner.Next()
	if !ok {
		t.Fatal("expected a column")
	}
	if len(col) != 4 {
		t.Fatalf("len(col) = %d, want 4", len(col))
	}
	// cutoff is 8, so source bins 4..7 are zero-extension; outputs 2 and 3
	// sample bins 6 and 7 (the latter clamped from 8).
	if col[2] != 0 || col[3] != 0 {
		t.Errorf("col = %v, want zero-extended entries at 2 and 3", col)
	}
}

func TestLogBinnerOutputIsDeterministic(t *testing.T) {
	cols := [][]float32{{1, 2, 3, 4, 5, 6, 7, 8}}
	settings := LogSettings{Height: 4, MaxFrequency: 4000, ResampleRate: 8000, FFTLen: 16}

	a, _ := NewLogBinner(&columnSource{cols: cols}, settings).Next()
	b, _ := NewLogBinner(&columnSource{cols: cols}, settings).Next()

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
