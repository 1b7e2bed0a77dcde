package mathdetect

import "image"

// frameCache remembers the previously scored frame and its verdict so that
// near-duplicate consecutive video frames skip the full contour analysis.
type frameCache struct {
	prev    *image.Gray
	verdict float64
	valid   bool
}

// lookup returns the cached verdict when the mean absolute pixel difference
// between img and the previous frame is below threshold. Frames of different
// dimensions never match.
func (f *frameCache) lookup(img *image.Gray, threshold float64) (float64, bool) {
	if !f.valid || f.prev == nil || threshold <= 0 {
		return 0, false
	}
	if !f.prev.Bounds().Eq(img.Bounds()) {
		return 0, false
	}
	if meanAbsDiff(f.prev, img) >= threshold {
		return 0, false
	}
	return f.verdict, true
}

// store records a frame and its verdict as the new comparison baseline.
func (f *frameCache) store(img *image.Gray, verdict float64) {
	cp := image.NewGray(img.Bounds())
	copy(cp.Pix, img.Pix)
	f.prev = cp
	f.verdict = verdict
	f.valid = true
}

// meanAbsDiff computes the mean absolute difference between two equally sized
// grayscale images.
func meanAbsDiff(a, b *image.Gray) float64 {
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum int64
	for y := range h {
		ra := a.Pix[y*a.Stride : y*a.Stride+w]
		rb := b.Pix[y*b.Stride : y*b.Stride+w]
		for x := range w {
			d := int64(ra[x]) - int64(rb[x])
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return float64(sum) / float64(w*h)
}
