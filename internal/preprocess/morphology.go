package preprocess

import (
	"image"
	"image/color"
)

// morphClose dilates then erodes, merging broken strokes.
func morphClose(binary *image.Gray, kernelSize int) *image.Gray {
	if kernelSize <= 1 {
		return binary
	}
	return erodeBinary(dilateBinary(binary, kernelSize), kernelSize)
}

// morphOpen erodes then dilates, removing speckle noise.
func morphOpen(binary *image.Gray, kernelSize int) *image.Gray {
	if kernelSize <= 1 {
		return binary
	}
	return dilateBinary(erodeBinary(binary, kernelSize), kernelSize)
}

// dilateBinary expands foreground regions with a square structuring element.
func dilateBinary(binary *image.Gray, kernelSize int) *image.Gray {
	w := binary.Bounds().Dx()
	h := binary.Bounds().Dy()
	half := kernelSize / 2
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := range h {
		for x := range w {
			var maxVal uint8
			for ky := -half; ky <= half && maxVal < 255; ky++ {
				ny := y + ky
				if ny < 0 || ny >= h {
					continue
				}
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx < 0 || nx >= w {
						continue
					}
					if v := binary.GrayAt(nx, ny).Y; v > maxVal {
						maxVal = v
						if maxVal == 255 {
							break
						}
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: maxVal})
		}
	}
	return out
}

// erodeBinary shrinks foreground regions with a square structuring element.
func erodeBinary(binary *image.Gray, kernelSize int) *image.Gray {
	w := binary.Bounds().Dx()
	h := binary.Bounds().Dy()
	half := kernelSize / 2
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := range h {
		for x := range w {
			minVal := uint8(255)
			for ky := -half; ky <= half && minVal > 0; ky++ {
				ny := y + ky
				if ny < 0 || ny >= h {
					// Pixels outside the image count as background.
					minVal = 0
					break
				}
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx < 0 || nx >= w {
						minVal = 0
						break
					}
					if v := binary.GrayAt(nx, ny).Y; v < minVal {
						minVal = v
						if minVal == 0 {
							break
						}
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: minVal})
		}
	}
	return out
}
