// Package latex normalizes, validates and classifies LaTeX formula text.
package latex

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Clean collapses whitespace runs and canonicalizes the formula through a
// structural parse and re-serialization. When the text does not parse, the
// whitespace-collapsed original is returned unchanged; Clean never fails.
func Clean(raw string) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(norm.NFC.String(raw), " "))
	if collapsed == "" {
		return ""
	}
	tree, err := parseLatex(collapsed)
	if err != nil {
		return collapsed
	}
	return serialize(tree)
}
