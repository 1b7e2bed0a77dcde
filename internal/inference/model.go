// Package inference runs the formula recognition model: an ONNX
// encoder/decoder pair decoded with beam search into LaTeX text.
package inference

import (
	"context"
	"image"
)

// MinConfidence is the floor below which a recognition result is treated as
// noise and discarded by callers.
const MinConfidence = 0.5

// Result is a recognized formula with its decode confidence in [0,1].
type Result struct {
	LaTeX      string
	Confidence float64
	TokenProbs []float64
}

// Model recognizes the formula in an image patch. Implementations must be
// safe for concurrent use.
type Model interface {
	Infer(ctx context.Context, img image.Image) (*Result, error)
	Close() error
}
