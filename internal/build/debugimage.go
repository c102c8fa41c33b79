package build

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// writeDebugImage renders a segment's log-spectrogram vectors as a
// grayscale PNG, one column per vector, for visual inspection (opt-in).
// It is a pure diagnostic leaf with no bearing on index content.
func writeDebugImage(dir, sourcePath string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	height := len(vectors[0])
	width := len(vectors)

	maxVal := float32(0)
	for _, col := range vectors {
		for _, v := range col {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	for x, col := range vectors {
		for y := 0; y < height; y++ {
			v := col[y] / maxVal
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			// row 0 is the lowest frequency; flip vertically so the
			// image reads low-frequency-at-bottom like a spectrogram.
			row := height - 1 - y
			img.SetGray(x, row, color.Gray{Y: uint8(math.Round(float64(v) * 255))})
		}
	}

	name := filepath.Base(sourcePath) + ".png"
	outPath := filepath.Join(dir, name)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating debug image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding debug image: %w", err)
	}
	return nil
}
