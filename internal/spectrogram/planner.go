// Package spectrogram implements the STFT and log-frequency
// re-binning stages of the transform pipeline.
package spectrogram

import (
	"math"
	"sync"
)

// planner memoises Hann windows by fft_len behind a read-mostly lock. A
// single process-wide instance, defaultPlanner, is created at package
// initialisation. go-dsp/fft exposes no persistent plan object to cache alongside the
// window (unlike rustfft's FftPlanner), so this degenerates to a window
// cache only.
type planner struct {
	mu    sync.RWMutex
	hanns map[int][]float64
}

var defaultPlanner = &planner{hanns: make(map[int][]float64)}

// hannWindow returns the cached Hann window of the given length,
// computing and storing it on first use.
func (p *planner) hannWindow(n int) []float64 {
	p.mu.RLock()
	w, ok := p.hanns[n]
	p.mu.RUnlock()
	if ok {
		return w
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.hanns[n]; ok {
		return w
	}
	w = generateHannWindow(n)
	p.hanns[n] = w
	return w
}

func generateHannWindow(n int) []float64 {
	w := make([]float64, n)
	if n <= 1 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}
