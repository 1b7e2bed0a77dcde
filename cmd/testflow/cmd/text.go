package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/textmath"
)

// textCmd represents the text command.
var textCmd = &cobra.Command{
	Use:   "text [expression]",
	Short: "Convert plain mathematical text to LaTeX",
	Long: `Convert a plain text mathematical expression to LaTeX and print the
validated result as JSON. No models are needed for text conversion.

Examples:
  testflow text "x^2 + 1/2"
  testflow text "int_0^1 x^2 dx"`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

func runText(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	converted := textmath.Convert(args[0])
	if !strings.ContainsAny(converted, "$") && !strings.Contains(converted, `\[`) && !strings.Contains(converted, `\(`) {
		converted = "$" + converted + "$"
	}

	processor := buildProcessor(cfg, nil)
	pages := []document.Page{{Number: 1, Kind: document.PageText, Text: converted}}

	result, err := processor.ProcessDocument(cmd.Context(), pages)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	if len(result.Formulas) == 0 {
		return fmt.Errorf("no valid formula in %q", args[0])
	}
	return printResult(result)
}

func init() {
	rootCmd.AddCommand(textCmd)
}
