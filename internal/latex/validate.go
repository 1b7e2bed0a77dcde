package latex

import "regexp"

// validityChecks is the battery of patterns accepted by IsValid. The gate is
// intentionally permissive: presence of any recognizable mathematical element
// is enough. It is necessary, not sufficient.
var validityChecks = []*regexp.Regexp{
	regexp.MustCompile(`\\[a-zA-Z]+`),              // any LaTeX command token
	regexp.MustCompile(`\$.*\$`),                   // inline math region
	regexp.MustCompile(`\\\[.*\\\]`),               // display math region
	regexp.MustCompile(`\\\(.*\\\)`),               // inline math region (paren form)
	regexp.MustCompile(`[0-9]`),                    // a digit
	regexp.MustCompile(`[+\-*/=<>^_]`),             // an operator
	regexp.MustCompile(`\\frac|\\sum|\\int|\\sqrt|\\lim`),
	regexp.MustCompile(`\\sin|\\cos|\\tan|\\log|\\ln`),
	regexp.MustCompile(`\\partial|\\nabla|\\vec`),
}

// IsValid reports whether text looks like a plausible mathematical formula.
func IsValid(text string) bool {
	if text == "" {
		return false
	}
	for _, re := range validityChecks {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Constructs counts the distinct recognized mathematical constructs in text.
// The document orchestrator uses this for its per-construct confidence bonus.
func Constructs(text string) int {
	count := 0
	for _, re := range constructPatterns {
		if re.MatchString(text) {
			count++
		}
	}
	return count
}

var constructPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\\frac`),
	regexp.MustCompile(`\\sqrt`),
	regexp.MustCompile(`\\sum`),
	regexp.MustCompile(`\\int`),
	regexp.MustCompile(`\\lim`),
	regexp.MustCompile(`\\prod`),
	regexp.MustCompile(`\\sin|\\cos|\\tan`),
	regexp.MustCompile(`\\log|\\ln`),
	regexp.MustCompile(`\^`),
	regexp.MustCompile(`_`),
}
