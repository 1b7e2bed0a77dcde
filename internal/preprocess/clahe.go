package preprocess

import (
	"image"
	"image/color"
)

// applyCLAHE performs contrast-limited adaptive histogram equalization on a
// grayscale image. The image is divided into a tiles x tiles grid; each tile
// gets a clipped, equalized mapping and pixels are remapped with bilinear
// interpolation between the four surrounding tile mappings to avoid visible
// tile seams.
func applyCLAHE(gray *image.Gray, tiles int, clipLimit float64) *image.Gray {
	if tiles <= 1 {
		return gray
	}
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	if w < tiles || h < tiles {
		return gray
	}

	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	// Per-tile lookup tables.
	luts := make([][256]uint8, tiles*tiles)
	for ty := range tiles {
		for tx := range tiles {
			x0 := tx * tileW
			y0 := ty * tileH
			x1 := minInt(x0+tileW, w)
			y1 := minInt(y0+tileH, h)
			luts[ty*tiles+tx] = tileLUT(gray, x0, y0, x1, y1, clipLimit)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		// Position in tile-center coordinate space.
		fy := (float64(y)-float64(tileH)/2.0 + 0.5) / float64(tileH)
		ty0 := int(fy)
		if fy < 0 {
			ty0 = 0
		}
		ty1 := minInt(ty0+1, tiles-1)
		wy := fy - float64(ty0)
		if wy < 0 {
			wy = 0
		} else if wy > 1 {
			wy = 1
		}
		for x := range w {
			fx := (float64(x)-float64(tileW)/2.0 + 0.5) / float64(tileW)
			tx0 := int(fx)
			if fx < 0 {
				tx0 = 0
			}
			tx1 := minInt(tx0+1, tiles-1)
			wx := fx - float64(tx0)
			if wx < 0 {
				wx = 0
			} else if wx > 1 {
				wx = 1
			}

			v := gray.GrayAt(x, y).Y
			v00 := float64(luts[ty0*tiles+tx0][v])
			v01 := float64(luts[ty0*tiles+tx1][v])
			v10 := float64(luts[ty1*tiles+tx0][v])
			v11 := float64(luts[ty1*tiles+tx1][v])
			top := v00*(1-wx) + v01*wx
			bot := v10*(1-wx) + v11*wx
			out.SetGray(x, y, color.Gray{Y: uint8(top*(1-wy) + bot*wy + 0.5)})
		}
	}
	return out
}

// tileLUT builds the clipped equalization lookup table for one tile.
func tileLUT(gray *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	total := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	var lut [256]uint8
	if total == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	// Clip histogram bins and redistribute the excess uniformly.
	clip := int(clipLimit * float64(total) / 256.0)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	share := excess / 256
	for i := range hist {
		hist[i] += share
	}

	cum := 0
	scale := 255.0 / float64(total)
	for i := range hist {
		cum += hist[i]
		v := int(float64(cum)*scale + 0.5)
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return lut
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
