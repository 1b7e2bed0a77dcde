package document

import (
	"context"
	"image"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/victoMR/testFlow/internal/inference"
	"github.com/victoMR/testFlow/internal/latex"
	"github.com/victoMR/testFlow/internal/mathdetect"
	"github.com/victoMR/testFlow/internal/preprocess"
)

// Config controls document processing.
type Config struct {
	MaxPages        int     // reject documents with more pages (0 uses the default)
	MaxWorkers      int     // worker pool size cap (0 = runtime.NumCPU())
	DetectThreshold float64 // minimum detection score before the model runs
	// Base confidence assigned to formulas extracted from text pages, which
	// carry no recognizer probability.
	TextConfidence float64
}

// DefaultConfig returns the standard processing limits.
func DefaultConfig() Config {
	return Config{
		MaxPages:        50,
		DetectThreshold: 0.4,
		TextConfidence:  0.75,
	}
}

// Processor runs pages through preprocessing, detection and recognition, and
// aggregates the per-page outputs into one deduplicated result.
type Processor struct {
	config     Config
	normalizer *preprocess.Normalizer
	detectCfg  mathdetect.Config
	model      inference.Model
	logger     *slog.Logger
}

// NewProcessor creates a document processor. The model may be nil, in which
// case image pages yield no formulas.
func NewProcessor(config Config, model inference.Model, logger *slog.Logger) *Processor {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultConfig().MaxPages
	}
	if config.DetectThreshold <= 0 {
		config.DetectThreshold = DefaultConfig().DetectThreshold
	}
	if config.TextConfidence <= 0 {
		config.TextConfidence = DefaultConfig().TextConfidence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		config:     config,
		normalizer: preprocess.NewNormalizer(preprocess.DefaultConfig()),
		detectCfg:  mathdetect.DefaultConfig(),
		model:      model,
		logger:     logger,
	}
}

// FrameSession processes single frames from one camera stream through a
// persistent detection scorer, so near-identical consecutive frames reuse the
// cached detection verdict instead of recomputing it.
type FrameSession struct {
	p      *Processor
	scorer *mathdetect.Scorer
}

// NewFrameSession creates a stream-local frame session.
func (p *Processor) NewFrameSession() *FrameSession {
	return &FrameSession{p: p, scorer: mathdetect.NewScorer(p.detectCfg)}
}

// ProcessFrame runs one frame through detection and recognition. Unlike
// ProcessDocument, a failure surfaces directly: a single frame has no other
// pages to fall back on.
func (s *FrameSession) ProcessFrame(ctx context.Context, img image.Image) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), State: StateDispatched}
	formulas, err := s.p.processImagePage(ctx, s.scorer, Page{Number: 1, Kind: PageImage, Image: img})
	if err != nil {
		res.State = StateFailed
		res.PageErrors = append(res.PageErrors, PageError{Page: 1, Err: err})
		return res, err
	}
	res.Formulas = dedupeFormulas(formulas)
	res.State = StateComplete
	return res, nil
}

type pageJob struct {
	index int
	page  Page
}

type pageResult struct {
	index    int
	formulas []Formula
	err      error
}

// ProcessDocument extracts formulas from all pages. Page failures are
// recorded and logged but do not abort the run; the page count is validated
// before anything is dispatched.
func (p *Processor) ProcessDocument(ctx context.Context, pages []Page) (*Result, error) {
	runID := uuid.NewString()
	res := &Result{RunID: runID, State: StateSubmitted}

	if len(pages) == 0 || len(pages) > p.config.MaxPages {
		res.State = StateFailed
		return res, &PageCountError{Pages: len(pages), Max: p.config.MaxPages}
	}

	workers := p.config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pages) {
		workers = len(pages)
	}

	p.logger.Info("processing document",
		"run_id", runID, "pages", len(pages), "workers", workers)

	jobs := make(chan pageJob, len(pages))
	results := make(chan pageResult, len(pages))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}
	res.State = StateDispatched

	go func() {
		defer close(jobs)
		for i, page := range pages {
			select {
			case jobs <- pageJob{index: i, page: page}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]pageResult, 0, len(pages))
	for r := range results {
		collected = append(collected, r)
	}
	res.State = StateAggregated

	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		return res, err
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	failed := 0
	for _, r := range collected {
		if r.err != nil {
			failed++
			pe := PageError{Page: pageNumber(pages, r.index), Err: r.err}
			res.PageErrors = append(res.PageErrors, pe)
			p.logger.Warn("page failed", "run_id", runID, "page", pe.Page, "error", r.err)
			continue
		}
		res.Formulas = append(res.Formulas, r.formulas...)
	}
	res.State = StateValidated

	res.Formulas = dedupeFormulas(res.Formulas)

	if failed == len(pages) {
		res.State = StateFailed
	} else {
		res.State = StateComplete
	}
	p.logger.Info("document processed",
		"run_id", runID, "formulas", len(res.Formulas), "failed_pages", failed)
	return res, nil
}

func pageNumber(pages []Page, index int) int {
	if n := pages[index].Number; n > 0 {
		return n
	}
	return index + 1
}

// worker processes pages from jobs until the channel closes. Each worker owns
// one detection scorer so consecutive near-identical pages hit its frame
// cache.
func (p *Processor) worker(ctx context.Context, jobs <-chan pageJob, results chan<- pageResult, wg *sync.WaitGroup) {
	defer wg.Done()
	scorer := mathdetect.NewScorer(p.detectCfg)
	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- pageResult{index: job.index, err: ctx.Err()}
			continue
		default:
		}
		formulas, err := p.processPage(ctx, scorer, job.page)
		results <- pageResult{index: job.index, formulas: formulas, err: err}
	}
}

func (p *Processor) processPage(ctx context.Context, scorer *mathdetect.Scorer, page Page) ([]Formula, error) {
	if page.Kind == PageText {
		return p.processTextPage(page), nil
	}
	return p.processImagePage(ctx, scorer, page)
}

func (p *Processor) processImagePage(ctx context.Context, scorer *mathdetect.Scorer, page Page) ([]Formula, error) {
	normalized, err := p.normalizer.Normalize(page.Image)
	if err != nil {
		return nil, err
	}

	score := scorer.Score(normalized)
	if score < p.config.DetectThreshold {
		p.logger.Debug("page below detection threshold", "page", page.Number, "score", score)
		return nil, nil
	}
	if p.model == nil {
		return nil, nil
	}

	res, err := p.model.Infer(ctx, normalized.Gray)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Confidence < inference.MinConfidence {
		return nil, nil
	}

	f, ok := p.buildFormula(page, res.LaTeX, res.Confidence)
	if !ok {
		return nil, nil
	}
	return []Formula{f}, nil
}

func (p *Processor) processTextPage(page Page) []Formula {
	var formulas []Formula
	for _, block := range extractMathBlocks(page.Text) {
		if f, ok := p.buildFormula(page, block, p.config.TextConfidence); ok {
			formulas = append(formulas, f)
		}
	}
	return formulas
}

// buildFormula cleans, validates, classifies and scores one candidate. Text
// that fails validation or bracket balance is dropped.
func (p *Processor) buildFormula(page Page, raw string, confidence float64) (Formula, bool) {
	text := latex.Clean(raw)
	if text == "" || !latex.IsValid(text) || !latex.BalancedBrackets(text) {
		return Formula{}, false
	}
	score := scoreFormula(text, confidence)
	return Formula{
		Page:    page.Number,
		LaTeX:   text,
		Type:    latex.Classify(text),
		Score:   score,
		Persist: score >= PersistThreshold,
	}, true
}

// dedupeFormulas keeps the first occurrence of each normalized text, in page
// order.
func dedupeFormulas(formulas []Formula) []Formula {
	sort.SliceStable(formulas, func(i, j int) bool { return formulas[i].Page < formulas[j].Page })
	seen := make(map[string]bool, len(formulas))
	out := formulas[:0]
	for _, f := range formulas {
		if seen[f.LaTeX] {
			continue
		}
		seen[f.LaTeX] = true
		out = append(out, f)
	}
	return out
}
