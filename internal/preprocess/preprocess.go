package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var (
	errNilImage   = errors.New("input image is nil")
	errEmptyImage = errors.New("image has zero dimension")
)

// PreprocessError represents errors that occur during image normalization.
// Callers should treat it as "no formula detected", not a system fault.
type PreprocessError struct {
	Stage string
	Err   error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess error in %s: %v", e.Stage, e.Err)
}

func (e *PreprocessError) Unwrap() error { return e.Err }

// Config holds configuration for the normalization pipeline.
type Config struct {
	MinDimension     int     // Smaller image side is upscaled to this size (never downscaled)
	ClipLimit        float64 // CLAHE contrast clip limit
	TileGridSize     int     // CLAHE tile grid (NxN)
	BilateralRadius  int     // Bilateral filter window radius
	BilateralSigmaS  float64 // Spatial sigma
	BilateralSigmaR  float64 // Range (intensity) sigma
	ThresholdBlock   int     // Adaptive threshold neighborhood size (odd)
	ThresholdC       float64 // Adaptive threshold constant subtracted from weighted mean
	MorphKernelSize  int     // Structuring element size for close/open
	MinComponentArea int     // Connected components below this area are removed as speckle
}

// DefaultConfig returns the default normalization configuration.
func DefaultConfig() Config {
	return Config{
		MinDimension:     1000,
		ClipLimit:        2.0,
		TileGridSize:     8,
		BilateralRadius:  4,
		BilateralSigmaS:  3.0,
		BilateralSigmaR:  30.0,
		ThresholdBlock:   11,
		ThresholdC:       2.0,
		MorphKernelSize:  3,
		MinComponentArea: 24,
	}
}

// NormalizedImage is the canonical form produced by Normalize. Gray holds the
// contrast-enhanced grayscale used for model inference; Binary holds the
// thresholded foreground mask (strokes = 255) used by the region heuristic.
// Neither image is mutated after creation.
type NormalizedImage struct {
	Gray   *image.Gray
	Binary *image.Gray
	Width  int
	Height int
}

// Bounds returns the pixel extent of the normalized image.
func (n *NormalizedImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, n.Width, n.Height)
}

// Normalizer runs the deterministic normalization pipeline.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a normalizer with the given configuration.
func NewNormalizer(cfg Config) *Normalizer {
	if cfg.MinDimension <= 0 {
		cfg.MinDimension = DefaultConfig().MinDimension
	}
	if cfg.ThresholdBlock%2 == 0 {
		cfg.ThresholdBlock++
	}
	return &Normalizer{cfg: cfg}
}

// Normalize converts an arbitrary input image into the canonical form. The
// stage order is fixed: grayscale, upscale, CLAHE, bilateral denoise,
// adaptive threshold, morphology, small-object removal.
func (n *Normalizer) Normalize(img image.Image) (*NormalizedImage, error) {
	if img == nil {
		return nil, &PreprocessError{Stage: "decode", Err: errNilImage}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &PreprocessError{Stage: "decode", Err: errEmptyImage}
	}

	gray := toGrayscale(img)
	gray = n.scaleUp(gray)
	gray = applyCLAHE(gray, n.cfg.TileGridSize, n.cfg.ClipLimit)
	gray = bilateralFilter(gray, n.cfg.BilateralRadius, n.cfg.BilateralSigmaS, n.cfg.BilateralSigmaR)

	binary := adaptiveThreshold(gray, n.cfg.ThresholdBlock, n.cfg.ThresholdC)
	binary = morphClose(binary, n.cfg.MorphKernelSize)
	binary = morphOpen(binary, n.cfg.MorphKernelSize)
	binary = removeSmallComponents(binary, n.cfg.MinComponentArea)

	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	return &NormalizedImage{Gray: gray, Binary: binary, Width: w, Height: h}, nil
}

// scaleUp uniformly upscales so the smaller dimension reaches MinDimension.
// Images already large enough pass through unchanged.
func (n *Normalizer) scaleUp(gray *image.Gray) *image.Gray {
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	minDim := w
	if h < minDim {
		minDim = h
	}
	if minDim >= n.cfg.MinDimension {
		return gray
	}
	scale := float64(n.cfg.MinDimension) / float64(minDim)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	resized := imaging.Resize(gray, newW, newH, imaging.CatmullRom)
	return toGrayscale(resized)
}

// toGrayscale forces single-channel grayscale via the standard luma weights.
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// BT.601 luma on 16-bit channel values
			luma := (299*uint32(r>>8) + 587*uint32(g>>8) + 114*uint32(b>>8)) / 1000
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(luma)})
		}
	}
	return gray
}
