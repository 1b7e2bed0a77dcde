package preprocess

import (
	"image"
	"image/color"
	"math"
)

// adaptiveThreshold binarizes with a Gaussian-weighted local mean and inverted
// polarity: pixels darker than their neighborhood mean minus C become
// foreground (255). Dark ink on light paper therefore comes out as the "on"
// value.
func adaptiveThreshold(gray *image.Gray, block int, c float64) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	radius := block / 2

	// Separable Gaussian weights sized to the block, sigma per the usual
	// 0.3*((ksize-1)*0.5 - 1) + 0.8 rule.
	sigma := 0.3*(float64(block-1)*0.5-1) + 0.8
	kernel := make([]float64, block)
	var ksum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		ksum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= ksum
	}

	// Horizontal pass.
	tmp := make([]float64, w*h)
	for y := range h {
		for x := range w {
			var sum, norm float64
			for k := -radius; k <= radius; k++ {
				nx := x + k
				if nx < 0 || nx >= w {
					continue
				}
				wgt := kernel[k+radius]
				sum += wgt * float64(gray.GrayAt(nx, y).Y)
				norm += wgt
			}
			tmp[y*w+x] = sum / norm
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			var sum, norm float64
			for k := -radius; k <= radius; k++ {
				ny := y + k
				if ny < 0 || ny >= h {
					continue
				}
				wgt := kernel[k+radius]
				sum += wgt * tmp[ny*w+x]
				norm += wgt
			}
			mean := sum / norm
			if float64(gray.GrayAt(x, y).Y) < mean-c {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
