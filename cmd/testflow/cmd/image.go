package cmd

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/cobra"

	"github.com/victoMR/testFlow/internal/document"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [file...]",
	Short: "Recognize formulas in image files",
	Long: `Recognize mathematical formulas in one or more image files and print the
extracted LaTeX as JSON.

Examples:
  testflow image formula.png
  testflow image page1.jpg page2.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func runImage(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	engine, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	processor := buildProcessor(cfg, engine)

	pages := make([]document.Page, 0, len(args))
	for i, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		pages = append(pages, document.Page{Number: i + 1, Kind: document.PageImage, Image: img})
	}

	result, err := processor.ProcessDocument(cmd.Context(), pages)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	return printResult(result)
}

func init() {
	rootCmd.AddCommand(imageCmd)
}
