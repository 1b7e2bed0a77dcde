package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/victoMR/testFlow/internal/config"
	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/inference"
	"github.com/victoMR/testFlow/internal/models"
)

// buildEngine constructs the recognition engine from configuration.
func buildEngine(ctx context.Context, cfg *config.Config) (*inference.Engine, error) {
	encoderPath := models.ResolveEncoderPath(cfg.Models.EncoderPath, cfg.Models.Dir)
	decoderPath := models.ResolveDecoderPath(cfg.Models.DecoderPath, cfg.Models.Dir)
	vocabPath := models.ResolveVocabPath(cfg.Models.VocabPath, cfg.Models.Dir)

	if err := models.ValidateModelFiles(encoderPath, decoderPath, vocabPath); err != nil {
		return nil, err
	}

	engineConfig := inference.DefaultConfig()
	engineConfig.EncoderPath = encoderPath
	engineConfig.DecoderPath = decoderPath
	engineConfig.VocabPath = vocabPath
	engineConfig.NumThreads = cfg.Models.NumThreads

	engine, err := inference.NewEngine(engineConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition engine: %w", err)
	}

	if cfg.Models.Warmup {
		if err := engine.Warmup(ctx); err != nil {
			slog.Warn("engine warmup failed", "error", err)
		}
	}
	return engine, nil
}

// buildProcessor constructs the document processor around a model.
func buildProcessor(cfg *config.Config, model inference.Model) *document.Processor {
	return document.NewProcessor(document.Config{
		MaxPages:        cfg.Document.MaxPages,
		MaxWorkers:      cfg.Document.MaxWorkers,
		DetectThreshold: cfg.Document.DetectThreshold,
	}, model, slog.Default())
}

// formulaOutput is one formula in CLI JSON output.
type formulaOutput struct {
	Page    int     `json:"page,omitempty"`
	Formula string  `json:"formula"`
	Tipo    string  `json:"tipo"`
	Score   float64 `json:"score"`
}

// printResult writes the run result as JSON to stdout.
func printResult(result *document.Result) error {
	out := struct {
		RunID    string          `json:"run_id"`
		State    string          `json:"state"`
		Formulas []formulaOutput `json:"formulas"`
	}{
		RunID:    result.RunID,
		State:    string(result.State),
		Formulas: make([]formulaOutput, 0, len(result.Formulas)),
	}
	for _, f := range result.Formulas {
		out.Formulas = append(out.Formulas, formulaOutput{
			Page:    f.Page,
			Formula: f.LaTeX,
			Tipo:    string(f.Type),
			Score:   f.Score,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
