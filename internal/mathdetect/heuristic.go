// Package mathdetect scores how plausibly a normalized image contains
// mathematical notation. It is a cheap contour-based gate that runs before
// model inference and never invokes the model itself.
package mathdetect

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/victoMR/testFlow/internal/preprocess"
)

// Region is an axis-aligned candidate box cut from a normalized image. The
// Source reference is for lookup only; a Region does not own the image.
type Region struct {
	X, Y, W, H int
	Source     *preprocess.NormalizedImage
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Config holds the tuned bands for the symbol descriptors. The bands encode
// that math glyphs are neither blob-like nor degenerate slivers, and show
// partial bilateral symmetry more often than natural-scene noise.
type Config struct {
	MinAreaFraction float64 // candidate area threshold as fraction of image area
	MinAspect       float64
	MaxAspect       float64
	PatchSize       int // canonical descriptor patch (square)

	CircularityMin float64
	CircularityMax float64
	SolidityMin    float64
	SolidityMax    float64
	DensityMin     float64
	DensityMax     float64
	SymmetryMin    float64

	ValidWeight    float64 // weight of validSymbols/totalCandidates
	CoverageWeight float64 // weight of contour coverage

	FrameDiffThreshold float64 // mean absolute pixel difference for the frame cache
}

// DefaultConfig returns the designed descriptor bands.
func DefaultConfig() Config {
	return Config{
		MinAreaFraction:    0.0005,
		MinAspect:          0.05,
		MaxAspect:          15.0,
		PatchSize:          64,
		CircularityMin:     0.1,
		CircularityMax:     0.9,
		SolidityMin:        0.3,
		SolidityMax:        0.95,
		DensityMin:         0.1,
		DensityMax:         0.7,
		SymmetryMin:        0.7,
		ValidWeight:        0.7,
		CoverageWeight:     0.3,
		FrameDiffThreshold: 2.0,
	}
}

// Scorer computes math-content scores for normalized images. It keeps the
// previous frame and verdict so near-identical consecutive video frames skip
// recomputation. A mutex serializes scoring, so one Scorer can be shared by
// the requests of a single frame stream.
type Scorer struct {
	cfg   Config
	mu    sync.Mutex
	cache frameCache
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	if cfg.PatchSize <= 0 {
		cfg.PatchSize = DefaultConfig().PatchSize
	}
	return &Scorer{cfg: cfg}
}

// Score returns a confidence in [0,1] that the image contains mathematical
// notation. Near-duplicate consecutive frames return the cached verdict.
func (s *Scorer) Score(img *preprocess.NormalizedImage) float64 {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if verdict, ok := s.cache.lookup(img.Gray, s.cfg.FrameDiffThreshold); ok {
		return verdict
	}
	score, _ := s.evaluate(img)
	s.cache.store(img.Gray, score)
	return score
}

// Regions returns the symbol regions that passed the descriptor bands, for
// callers that need to localize the evidence behind a score. Recognition runs
// on the whole normalized image; it does not crop to these.
func (s *Scorer) Regions(img *preprocess.NormalizedImage) []Region {
	if img == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, regions := s.evaluate(img)
	return regions
}

// evaluate computes the aggregate score and the surviving candidate regions.
func (s *Scorer) evaluate(img *preprocess.NormalizedImage) (float64, []Region) {
	imageArea := float64(img.Width * img.Height)
	minArea := s.cfg.MinAreaFraction * imageArea

	comps := preprocess.Components(img.Binary)

	var candidates, valid int
	var coverage float64
	var regions []Region

	for _, c := range comps {
		if float64(c.Area) < minArea {
			continue
		}
		aspect := float64(c.Width()) / float64(c.Height())
		if aspect < s.cfg.MinAspect || aspect > s.cfg.MaxAspect {
			continue
		}
		candidates++
		coverage += float64(c.Area)

		patch := s.patchFor(img.Binary, c)
		d := computeDescriptors(c, patch)
		if s.isValidSymbol(d) {
			valid++
			regions = append(regions, Region{
				X: c.MinX, Y: c.MinY, W: c.Width(), H: c.Height(), Source: img,
			})
		}
	}

	if candidates == 0 {
		return 0, nil
	}
	validRatio := float64(valid) / float64(candidates)
	coverageRatio := coverage / imageArea
	if coverageRatio > 1 {
		coverageRatio = 1
	}
	return s.cfg.ValidWeight*validRatio + s.cfg.CoverageWeight*coverageRatio, regions
}

// patchFor crops the component's bounding box and resizes it to the canonical
// square patch used by the descriptors.
func (s *Scorer) patchFor(binary *image.Gray, c preprocess.Component) *image.Gray {
	crop := imaging.Crop(binary, image.Rect(c.MinX, c.MinY, c.MaxX+1, c.MaxY+1))
	resized := imaging.Resize(crop, s.cfg.PatchSize, s.cfg.PatchSize, imaging.NearestNeighbor)
	patch := image.NewGray(image.Rect(0, 0, s.cfg.PatchSize, s.cfg.PatchSize))
	for y := range s.cfg.PatchSize {
		for x := range s.cfg.PatchSize {
			r, _, _, _ := resized.At(x, y).RGBA()
			if r > 0x7fff {
				patch.Pix[y*patch.Stride+x] = 255
			}
		}
	}
	return patch
}

// isValidSymbol checks all four descriptor bands.
func (s *Scorer) isValidSymbol(d descriptors) bool {
	return d.circularity > s.cfg.CircularityMin && d.circularity < s.cfg.CircularityMax &&
		d.solidity > s.cfg.SolidityMin && d.solidity < s.cfg.SolidityMax &&
		d.density > s.cfg.DensityMin && d.density < s.cfg.DensityMax &&
		d.symmetry > s.cfg.SymmetryMin
}
