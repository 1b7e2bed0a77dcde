package textmath

import (
	"regexp"
	"strings"
)

// Dialect normalization strips presentation-only LaTeX that changes rendering
// but not meaning, so equivalent formulas from different sources compare and
// deduplicate as equal.

var (
	leftRightRe = regexp.MustCompile(`\\left\s*|\\right\s*`)
	displayRe   = regexp.MustCompile(`\\displaystyle\s*|\\textstyle\s*`)
	spacingRe   = regexp.MustCompile(`\\[,;:!]|\\quad\b|\\qquad\b`)
	mathbbRe    = regexp.MustCompile(`\\mathbb\{([A-Z])\}`)
)

// blackboardSets lists the double-struck letters that denote standard number
// sets; only those collapse to their plain letter.
var blackboardSets = map[string]bool{
	"R": true, "N": true, "Z": true, "Q": true, "C": true,
}

// NormalizeDialect rewrites text into a presentation-neutral form. The result
// is for comparison and classification; the original text should be kept for
// display.
func NormalizeDialect(text string) string {
	out := leftRightRe.ReplaceAllString(text, "")
	out = displayRe.ReplaceAllString(out, "")
	out = spacingRe.ReplaceAllString(out, " ")
	out = mathbbRe.ReplaceAllStringFunc(out, func(m string) string {
		letter := mathbbRe.FindStringSubmatch(m)[1]
		if blackboardSets[letter] {
			return letter
		}
		return m
	})
	return strings.TrimSpace(spaceRun.ReplaceAllString(out, " "))
}
