package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/pdfx"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [file]",
	Short: "Extract formulas from a PDF document",
	Long: `Extract mathematical formulas from every page of a PDF document and print
them as JSON, ordered by page.

Examples:
  testflow pdf exam.pdf
  testflow pdf notes.pdf --models-dir /opt/models`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	filename := args[0]

	pageCount, err := pdfx.PageCount(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if pageCount < 1 || pageCount > cfg.Document.MaxPages {
		return &document.PageCountError{Pages: pageCount, Max: cfg.Document.MaxPages}
	}

	engine, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	processor := buildProcessor(cfg, engine)

	pages, err := pdfx.LoadPages(filename)
	if err != nil {
		return fmt.Errorf("failed to extract PDF content: %w", err)
	}

	result, err := processor.ProcessDocument(cmd.Context(), pages)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	return printResult(result)
}

func init() {
	rootCmd.AddCommand(pdfCmd)
}
