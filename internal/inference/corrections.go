package inference

import (
	"regexp"
	"strings"
)

// Recognition models trained on rendered formulas produce a handful of
// recurring slips: wrong-case commands, raw Unicode math symbols instead of
// commands, and doubled script markers. The corrections below are applied in
// order to every decoded string.

var literalCorrections = []struct {
	from string
	to   string
}{
	{`\Frac`, `\frac`},
	{`\Sqrt`, `\sqrt`},
	{`\Sum`, `\sum`},
	{`\Int`, `\int`},
	{`\Lim`, `\lim`},
	{"×", `\times `},
	{"÷", `\div `},
	{"·", `\cdot `},
	{"−", "-"},
	{"∫", `\int `},
	{"∑", `\sum `},
	{"∏", `\prod `},
	{"√", `\sqrt `},
	{"π", `\pi `},
	{"∞", `\infty `},
	{"≤", `\leq `},
	{"≥", `\geq `},
	{"≠", `\neq `},
	{"→", `\to `},
	{"±", `\pm `},
	{"∈", `\in `},
}

var (
	doubledSupRe = regexp.MustCompile(`\^\^+`)
	doubledSubRe = regexp.MustCompile(`__+`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// ApplyCorrections fixes known recognition slips in decoded LaTeX.
func ApplyCorrections(text string) string {
	out := text
	for _, c := range literalCorrections {
		out = strings.ReplaceAll(out, c.from, c.to)
	}
	out = doubledSupRe.ReplaceAllString(out, "^")
	out = doubledSubRe.ReplaceAllString(out, "_")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(out, " "))
}
