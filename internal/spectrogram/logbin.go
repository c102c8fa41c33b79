package spectrogram

import "math"

// ColumnPuller is the minimal interface LogBinner consumes: anything
// that lazily yields SpectrogramColumns, such as *Generator.
type ColumnPuller interface {
	Next() ([]float32, bool)
}

// LogSettings configures the log-frequency re-binning.
type LogSettings struct {
	Height       int
	MaxFrequency int
	ResampleRate int
	FFTLen       int
}

// CutoffBin returns round(max_frequency * fft_len / resample_rate), the
// number of leading magnitude bins considered before log re-binning.
func (s LogSettings) CutoffBin() int {
	return int(math.Round(float64(s.MaxFrequency) * float64(s.FFTLen) / float64(s.ResampleRate)))
}

// LogBinner wraps a SpectrogramColumn stream and yields LogColumns of
// exactly Height entries, re-binning each truncated/zero-extended
// column onto a log-spaced frequency axis via point-sampling.
type LogBinner struct {
	src      ColumnPuller
	settings LogSettings
	cutoff   int
	logIdx   []float64
	lnHeight float64
}

// NewLogBinner constructs a LogBinner over src with the given settings.
func NewLogBinner(src ColumnPuller, settings LogSettings) *LogBinner {
	height := settings.Height
	logIdx := make([]float64, height)
	for i := 0; i < height; i++ {
		logIdx[i] = math.Log(float64(i + 1))
	}

	return &LogBinner{
		src:      src,
		settings: settings,
		cutoff:   settings.CutoffBin(),
		logIdx:   logIdx,
		lnHeight: math.Log(float64(height)),
	}
}

// Next produces the next LogColumn, or ok=false once the source is
// exhausted.
func (b *LogBinner) Next() ([]float32, bool) {
	col, ok := b.src.Next()
	if !ok {
		return nil, false
	}

	truncated := make([]float32, b.cutoff)
	copy(truncated, col)

	out := make([]float32, b.settings.Height)
	if b.cutoff <= 0 || b.lnHeight == 0 {
		return out, true
	}

	for i := range out {
		srcIdx := int(b.logIdx[i] / b.lnHeight * float64(b.cutoff))
		if srcIdx < 0 {
			srcIdx = 0
		}
		if srcIdx >= b.cutoff {
			srcIdx = b.cutoff - 1
		}
		out[i] = truncated[srcIdx]
	}
	return out, true
}
