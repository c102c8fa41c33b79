package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Puller is the minimal interface a Resampler consumes from: anything
// that lazily yields mono f32 samples one at a time, such as Stream.
type Puller interface {
	Next() (float32, bool)
}

// Resampler wraps a Puller declared at inputRate and emits fixed-size
// chunks of samples at targetRate. Each chunk is produced by
// collecting chunkSize input samples, splitting them into subChunks
// equal sub-blocks, and resampling each sub-block independently in the
// frequency domain — mirroring the sub-chunk structure of a fixed-input
// polyphase resampler without depending on an unverified third-party
// implementation.
type Resampler struct {
	src        Puller
	inputRate  int
	targetRate int
	chunkSize  int
	subChunks  int
	subSize    int
	outSubSize int
	done       bool
}

// NewResampler constructs a Resampler. It fails with
// ErrResamplerConstruction if the rates are non-positive, chunkSize is
// not evenly divisible by subChunks, or the resulting sub-block is too
// short to resample.
func NewResampler(src Puller, inputRate, targetRate, chunkSize, subChunks int) (*Resampler, error) {
	if inputRate <= 0 || targetRate <= 0 {
		return nil, ErrResamplerConstruction
	}
	if chunkSize <= 0 || subChunks <= 0 || chunkSize%subChunks != 0 {
		return nil, ErrResamplerConstruction
	}
	subSize := chunkSize / subChunks
	if subSize < 2 {
		return nil, ErrResamplerConstruction
	}
	outSubSize := int(math.Round(float64(subSize) * float64(targetRate) / float64(inputRate)))
	if outSubSize < 1 {
		return nil, ErrResamplerConstruction
	}

	return &Resampler{
		src:        src,
		inputRate:  inputRate,
		targetRate: targetRate,
		chunkSize:  chunkSize,
		subChunks:  subChunks,
		subSize:    subSize,
		outSubSize: outSubSize,
	}, nil
}

// OutputChunkSize returns the deterministic output length of every
// non-final chunk produced by Next.
func (r *Resampler) OutputChunkSize() int {
	return r.outSubSize * r.subChunks
}

// Next pulls one chunkSize block of input (zero-padding a trailing
// partial block at end-of-stream), resamples it, and returns it. It
// returns ok=false once the input stream is exhausted and any final
// partial chunk has already been emitted.
func (r *Resampler) Next() ([]float32, bool) {
	if r.done {
		return nil, false
	}

	input := make([]float32, 0, r.chunkSize)
	for len(input) < r.chunkSize {
		v, ok := r.src.Next()
		if !ok {
			break
		}
		input = append(input, v)
	}

	if len(input) == 0 {
		r.done = true
		return nil, false
	}

	if len(input) < r.chunkSize {
		r.done = true
		padded := make([]float32, r.chunkSize)
		copy(padded, input)
		input = padded
	}

	out := make([]float32, 0, r.OutputChunkSize())
	for i := 0; i < r.subChunks; i++ {
		sub := input[i*r.subSize : (i+1)*r.subSize]
		out = append(out, resampleBlock(sub, r.outSubSize)...)
	}
	return out, true
}

// resampleBlock resamples a single block of samples to outLen via
// zero-padding or truncating its FFT spectrum, then scales by the
// length ratio to preserve amplitude.
func resampleBlock(in []float32, outLen int) []float32 {
	complexIn := make([]complex128, len(in))
	for i, v := range in {
		complexIn[i] = complex(float64(v), 0)
	}

	spectrum := fft.FFT(complexIn)

	n := len(spectrum)
	out := make([]complex128, outLen)

	m := outLen
	if n < m {
		m = n
	}
	half := m / 2

	for i := 0; i <= half; i++ {
		out[i] = spectrum[i]
	}
	for i := 1; i < m-half; i++ {
		srcIdx := n - i
		dstIdx := outLen - i
		if srcIdx >= 0 && srcIdx < n && dstIdx >= 0 && dstIdx < outLen {
			out[dstIdx] = spectrum[srcIdx]
		}
	}

	timeDomain := fft.IFFT(out)

	scale := float64(outLen) / float64(len(in))
	result := make([]float32, outLen)
	for i, c := range timeDomain {
		result[i] = float32(real(c) * scale)
	}
	return result
}
