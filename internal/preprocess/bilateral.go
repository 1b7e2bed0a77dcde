package preprocess

import (
	"image"
	"image/color"
	"math"
)

// bilateralFilter applies an edge-preserving smoothing filter. Neighbors are
// weighted by both spatial distance and intensity difference, so flat noise is
// averaged away while thin strokes keep their sharp edges. A plain Gaussian
// blur destroys the strokes of small math symbols, which is why the pipeline
// uses this instead.
func bilateralFilter(gray *image.Gray, radius int, sigmaSpace, sigmaRange float64) *image.Gray {
	if radius <= 0 {
		return gray
	}
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	// Precompute kernels: spatial weights over the window, range weights over
	// all possible intensity deltas.
	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	var rangeW [256]float64
	for d := range rangeW {
		rangeW[d] = math.Exp(-float64(d*d) / (2 * sigmaRange * sigmaRange))
	}

	for y := range h {
		for x := range w {
			center := gray.GrayAt(x, y).Y
			var sum, norm float64
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					v := gray.GrayAt(nx, ny).Y
					diff := int(v) - int(center)
					if diff < 0 {
						diff = -diff
					}
					wgt := spatial[(dy+radius)*size+(dx+radius)] * rangeW[diff]
					sum += wgt * float64(v)
					norm += wgt
				}
			}
			if norm > 0 {
				out.SetGray(x, y, color.Gray{Y: uint8(sum/norm + 0.5)})
			} else {
				out.SetGray(x, y, color.Gray{Y: center})
			}
		}
	}
	return out
}
