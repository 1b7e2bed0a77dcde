package latex

import "regexp"

// ProblemType is the categorical label attached to a classified formula.
type ProblemType string

const (
	TypeIntegral      ProblemType = "Integral"
	TypeLimit         ProblemType = "Limit"
	TypeDerivative    ProblemType = "Derivative"
	TypeSum           ProblemType = "Sum"
	TypeProduct       ProblemType = "Product"
	TypeEquation      ProblemType = "Equation"
	TypeSquareRoot    ProblemType = "Square root"
	TypeLogarithm     ProblemType = "Logarithm"
	TypeTrigonometry  ProblemType = "Trigonometry"
	TypeMatrix        ProblemType = "Matrix"
	TypeVector        ProblemType = "Vector"
	TypeInfinity      ProblemType = "Infinity"
	TypeSetTheory     ProblemType = "Set theory"
	TypeSetOperations ProblemType = "Set operations"
	TypeLogic         ProblemType = "Logic"
	TypeCombinatorics ProblemType = "Combinatorics"
	TypeAlgebraic     ProblemType = "Algebraic expression"
)

// classification rule; evaluated in order, first match wins.
type classRule struct {
	pattern *regexp.Regexp
	label   ProblemType
}

// classTable is ordered from specific to general. Derivative-as-fraction must
// precede Equation, otherwise "\frac{d}{dx}f = f'" would classify as a plain
// equation. The order is data, inspectable and testable on its own.
var classTable = []classRule{
	{regexp.MustCompile(`\\int`), TypeIntegral},
	{regexp.MustCompile(`\\lim`), TypeLimit},
	{regexp.MustCompile(`\\frac\{d\}\{d[x-z]\}`), TypeDerivative},
	{regexp.MustCompile(`\\sum`), TypeSum},
	{regexp.MustCompile(`\\prod`), TypeProduct},
	{regexp.MustCompile(`=`), TypeEquation},
	{regexp.MustCompile(`\\sqrt`), TypeSquareRoot},
	{regexp.MustCompile(`\\log|\\ln`), TypeLogarithm},
	{regexp.MustCompile(`\\sin|\\cos|\\tan`), TypeTrigonometry},
	{regexp.MustCompile(`\\matrix|\\begin\{.?matrix\}`), TypeMatrix},
	{regexp.MustCompile(`\\vec`), TypeVector},
	{regexp.MustCompile(`\\infty`), TypeInfinity},
	{regexp.MustCompile(`\\in\b`), TypeSetTheory},
	{regexp.MustCompile(`\\cup|\\cap`), TypeSetOperations},
	{regexp.MustCompile(`\\forall|\\exists`), TypeLogic},
	{regexp.MustCompile(`\\binom`), TypeCombinatorics},
}

// Classify scans the ordered rule table and returns the first matching label,
// or the algebraic-expression default when nothing matches.
func Classify(text string) ProblemType {
	for _, rule := range classTable {
		if rule.pattern.MatchString(text) {
			return rule.label
		}
	}
	return TypeAlgebraic
}
