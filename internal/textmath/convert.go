// Package textmath converts plain-text mathematical notation into LaTeX.
package textmath

import (
	"regexp"
	"strings"
)

// tokenSubs maps literal plain-text tokens to LaTeX. Applied before the
// structural rules so that multi-character operators are not split by them.
// Longer tokens listed first; replacement is a single ordered pass.
var tokenSubs = []struct {
	from string
	to   string
}{
	{"<=", `\leq `},
	{">=", `\geq `},
	{"!=", `\neq `},
	{"+-", `\pm `},
	{"->", `\to `},
	{"infinity", `\infty `},
	{"inf", `\infty `},
	{"alpha", `\alpha `},
	{"beta", `\beta `},
	{"gamma", `\gamma `},
	{"delta", `\delta `},
	{"theta", `\theta `},
	{"lambda", `\lambda `},
	{"sigma", `\sigma `},
	{"omega", `\omega `},
	{"pi", `\pi `},
}

// structural rules, applied in order after token substitution. Order matters:
// big-operator bounds must be rewritten before the generic sub/superscript
// rules consume their _ and ^ markers.
var structuralRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// lim_x->0 f(x), already token-substituted to lim_x\to 0
	{regexp.MustCompile(`\blim_(\w+)\s*\\to\s*(\w+)`), `\lim_{$1 \to $2}`},
	// sum_a^b and int_a^b with both bounds
	{regexp.MustCompile(`\bsum_(\w+)\^(\w+)`), `\sum_{$1}^{$2}`},
	{regexp.MustCompile(`\bint_(\w+)\^(\w+)`), `\int_{$1}^{$2}`},
	// named functions
	{regexp.MustCompile(`\b(sin|cos|tan|log|ln|sqrt|sum|int|lim|prod)\b`), `\$1`},
	// fractions: a/b with simple operands
	{regexp.MustCompile(`(\w+)\s*/\s*(\w+)`), `\frac{$1}{$2}`},
	// superscripts and subscripts with simple operands
	{regexp.MustCompile(`(\w+)\^(\w+)`), `{$1}^{$2}`},
	{regexp.MustCompile(`(\w+)_(\w+)`), `{$1}_{$2}`},
}

var spaceRun = regexp.MustCompile(`\s+`)

// Convert rewrites plain-text math notation into LaTeX and normalizes away
// presentation-only dialect. Input that carries no recognizable notation
// passes through with only whitespace normalization, so Convert is safe to
// apply unconditionally.
func Convert(text string) string {
	out := text
	for _, sub := range tokenSubs {
		out = strings.ReplaceAll(out, sub.from, sub.to)
	}
	for _, rule := range structuralRules {
		out = rule.pattern.ReplaceAllString(out, rule.replace)
	}
	return NormalizeDialect(out)
}
