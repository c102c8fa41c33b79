package spectrogram

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// ChunkPuller is the minimal interface Generator consumes: anything that
// lazily yields fixed-size chunks of f32 samples, such as *audio.Resampler.
type ChunkPuller interface {
	Next() ([]float32, bool)
}

// Settings configures the windowed STFT.
type Settings struct {
	FFTLen     int
	FFTOverlap int
}

// Generator wraps a lazy f32 chunk stream and yields SpectrogramColumns:
// Hann-windowed, FFT-magnitude vectors of length FFTLen/2.
type Generator struct {
	src      ChunkPuller
	settings Settings
	hann     []float64
	buf      []float32
	eof      bool
	done     bool
}

// NewGenerator constructs a Generator over src with the given settings.
func NewGenerator(src ChunkPuller, settings Settings) *Generator {
	return &Generator{
		src:      src,
		settings: settings,
		hann:     defaultPlanner.hannWindow(settings.FFTLen),
	}
}

// Next produces the next SpectrogramColumn. It returns ok=false once the
// source is exhausted and the trailing zero-padded column (if any) has
// already been emitted.
func (g *Generator) Next() ([]float32, bool) {
	if g.done {
		return nil, false
	}

	for len(g.buf) < g.settings.FFTLen && !g.eof {
		chunk, ok := g.src.Next()
		if !ok {
			g.eof = true
			break
		}
		g.buf = append(g.buf, chunk...)
	}

	if len(g.buf) == 0 {
		g.done = true
		return nil, false
	}

	frame := make([]float32, g.settings.FFTLen)
	copy(frame, g.buf)

	if len(g.buf) < g.settings.FFTLen {
		g.done = true
	}

	hop := g.settings.FFTLen - g.settings.FFTOverlap
	if hop <= 0 {
		hop = g.settings.FFTLen
	}
	if hop >= len(g.buf) {
		g.buf = g.buf[:0]
	} else {
		g.buf = g.buf[hop:]
	}

	col := transformFrame(frame, g.hann)
	return col, true
}

// transformFrame applies the Hann window, forward FFTs the frame, and
// returns the first fft_len/2 magnitudes normalized by sqrt(fft_len).
func transformFrame(frame []float32, hann []float64) []float32 {
	n := len(frame)
	complexFrame := make([]complex128, n)
	for i, v := range frame {
		complexFrame[i] = complex(float64(v)*hann[i], 0)
	}

	transformed := fft.FFT(complexFrame)

	half := n / 2
	scale := math.Sqrt(float64(n))
	out := make([]float32, half)
	for i := 0; i < half; i++ {
		out[i] = float32(cmplxAbs(transformed[i]) / scale)
	}
	return out
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
