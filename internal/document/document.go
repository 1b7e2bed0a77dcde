// Package document orchestrates formula extraction over multi-page inputs:
// page dispatch across a worker pool, recognition, scoring, deduplication and
// aggregation into a single ordered result.
package document

import (
	"fmt"
	"image"

	"github.com/victoMR/testFlow/internal/latex"
)

// PageKind distinguishes rendered pages from extracted-text pages.
type PageKind int

const (
	PageImage PageKind = iota
	PageText
)

// Page is one unit of work. Image pages run through the visual pipeline,
// text pages through math-block extraction.
type Page struct {
	Number int // 1-based page number
	Kind   PageKind
	Image  image.Image
	Text   string
}

// Formula is one extracted formula with its document-level score in [0,100].
type Formula struct {
	Page    int
	LaTeX   string
	Type    latex.ProblemType
	Score   float64
	Persist bool // Score >= PersistThreshold
}

// PageError records a failure local to one page; it never fails the run.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e PageError) Unwrap() error { return e.Err }

// PageCountError rejects a document before any page is dispatched.
type PageCountError struct {
	Pages int
	Max   int
}

func (e *PageCountError) Error() string {
	if e.Pages == 0 {
		return "document has no pages"
	}
	return fmt.Sprintf("document has %d pages, maximum is %d", e.Pages, e.Max)
}

// State tracks run progress through the processing stages.
type State string

const (
	StateSubmitted  State = "submitted"
	StateDispatched State = "pages_dispatched"
	StateAggregated State = "aggregating"
	StateValidated  State = "validated"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Result is the aggregated outcome of a document run. Formulas are ordered
// by page and deduplicated on normalized text, first occurrence winning.
type Result struct {
	RunID      string
	State      State
	Formulas   []Formula
	PageErrors []PageError
}
