package mathdetect

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victoMR/testFlow/internal/preprocess"
)

// normalized wraps a binary mask into a NormalizedImage for scoring.
func normalized(binary *image.Gray) *preprocess.NormalizedImage {
	w := binary.Bounds().Dx()
	h := binary.Bounds().Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	copy(gray.Pix, binary.Pix)
	return &preprocess.NormalizedImage{Gray: gray, Binary: binary, Width: w, Height: h}
}

// drawDigitLike draws a hollow rectangle, a shape with partial symmetry and
// moderate density resembling a glyph such as "0".
func drawDigitLike(img *image.Gray, x0, y0, w, h int) {
	for x := x0; x < x0+w; x++ {
		img.SetGray(x, y0, color.Gray{Y: 255})
		img.SetGray(x, y0+h-1, color.Gray{Y: 255})
	}
	for y := y0; y < y0+h; y++ {
		img.SetGray(x0, y, color.Gray{Y: 255})
		img.SetGray(x0+1, y, color.Gray{Y: 255})
		img.SetGray(x0+w-2, y, color.Gray{Y: 255})
		img.SetGray(x0+w-1, y, color.Gray{Y: 255})
	}
}

func TestScore_EmptyImage(t *testing.T) {
	s := NewScorer(DefaultConfig())
	img := normalized(image.NewGray(image.Rect(0, 0, 100, 100)))
	assert.Zero(t, s.Score(img))
}

func TestScore_NilImage(t *testing.T) {
	s := NewScorer(DefaultConfig())
	assert.Zero(t, s.Score(nil))
}

func TestScore_GlyphLikeContent(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	drawDigitLike(img, 20, 30, 24, 40)
	drawDigitLike(img, 60, 30, 24, 40)

	s := NewScorer(DefaultConfig())
	score := s.Score(normalized(img))
	assert.Positive(t, score)
	assert.LessOrEqual(t, score, 1.0)
}

func TestRegions_AspectRatioFilter(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	// A degenerate sliver: 180px wide, 1px tall (aspect 180 > max 15).
	for x := 10; x < 190; x++ {
		img.SetGray(x, 100, color.Gray{Y: 255})
	}

	cfg := DefaultConfig()
	s := NewScorer(cfg)
	assert.Empty(t, s.Regions(normalized(img)))
}

func TestRegions_WithinImageBounds(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	drawDigitLike(img, 10, 10, 24, 40)

	s := NewScorer(DefaultConfig())
	for _, r := range s.Regions(normalized(img)) {
		assert.True(t, r.Rect().In(image.Rect(0, 0, 120, 120)))
		require.NotNil(t, r.Source)
	}
}

func TestScorer_ReuseCarriesVerdictAcrossFrames(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	drawDigitLike(img, 20, 30, 24, 40)
	drawDigitLike(img, 60, 30, 24, 40)
	a := normalized(img)

	s := NewScorer(DefaultConfig())
	first := s.Score(a)
	require.Positive(t, first)

	// Same gray frame but an empty binary channel: a fresh scorer sees no
	// candidates, while a warm scorer recognizes the near-duplicate frame
	// and returns the previous verdict without re-evaluating.
	b := &preprocess.NormalizedImage{
		Gray:   a.Gray,
		Binary: image.NewGray(image.Rect(0, 0, 120, 120)),
		Width:  120,
		Height: 120,
	}
	assert.InDelta(t, first, s.Score(b), 1e-9)
	assert.Zero(t, NewScorer(DefaultConfig()).Score(b))
}

func TestScorer_ConcurrentScoring(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	drawDigitLike(img, 20, 30, 24, 40)
	n := normalized(img)

	s := NewScorer(DefaultConfig())
	results := make([]float64, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Score(n)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		assert.InDelta(t, results[0], results[i], 1e-9)
	}
}

func TestFrameCache_NearDuplicateReusesVerdict(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range base.Pix {
		base.Pix[i] = uint8(i % 200)
	}
	var fc frameCache
	fc.store(base, 0.42)

	// One changed pixel: mean difference far below threshold.
	near := image.NewGray(image.Rect(0, 0, 50, 50))
	copy(near.Pix, base.Pix)
	near.Pix[0] = 255

	v, ok := fc.lookup(near, 2.0)
	require.True(t, ok)
	assert.InDelta(t, 0.42, v, 1e-9)
}

func TestFrameCache_DifferentFrameMisses(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 50, 50))
	var fc frameCache
	fc.store(base, 0.9)

	far := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range far.Pix {
		far.Pix[i] = 255
	}
	_, ok := fc.lookup(far, 2.0)
	assert.False(t, ok)

	other := image.NewGray(image.Rect(0, 0, 30, 30))
	_, ok = fc.lookup(other, 2.0)
	assert.False(t, ok, "dimension mismatch never matches")
}

func TestConvexHullArea_Square(t *testing.T) {
	pts := []image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}
	assert.InDelta(t, 100.0, convexHullArea(pts), 1e-9)
}

func TestComputeDescriptors_SymmetricPatch(t *testing.T) {
	patch := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 10; y < 54; y++ {
		for x := 20; x < 44; x++ {
			patch.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	c := preprocess.Component{
		Area: 24 * 44, Perimeter: 2*(24+44) - 4,
		MinX: 20, MinY: 10, MaxX: 43, MaxY: 53,
		Boundary: []image.Point{{20, 10}, {43, 10}, {43, 53}, {20, 53}},
	}
	d := computeDescriptors(c, patch)
	assert.Greater(t, d.symmetry, 0.95, "mirror symmetric patch")
	assert.Greater(t, d.density, 0.2)
	assert.Less(t, d.density, 0.3)
}
