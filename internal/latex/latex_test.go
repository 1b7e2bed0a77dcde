package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalancedBrackets(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"plain", "x+1", true},
		{"simple braces", "\\frac{1}{2}", true},
		{"nested mixed", "(a[b{c}d]e)", true},
		{"unclosed", "\\sqrt{x", false},
		{"closer first", ")x(", false},
		{"cross nesting", "(a[b)c]", false},
		{"stray close", "x}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BalancedBrackets(tt.text))
		})
	}
}

func TestClean_CollapsesWhitespace(t *testing.T) {
	// Parsable input serializes without decorative spaces.
	assert.Equal(t, "x+y", Clean("x   +\t y"))
}

func TestClean_CanonicalizesScripts(t *testing.T) {
	assert.Equal(t, "x^{2}", Clean("x^2"))
	assert.Equal(t, "x_{i}^{2}", Clean("x^2_i"))
	assert.Equal(t, "\\int_{0}^{1}", Clean("\\int_0^1"))
}

func TestClean_BracesCommandArguments(t *testing.T) {
	assert.Equal(t, "\\frac{1}{2}", Clean("\\frac12"))
	assert.Equal(t, "\\sqrt{x}", Clean("\\sqrt x"))
}

func TestClean_FallsBackOnUnparsableInput(t *testing.T) {
	// Unbalanced brace cannot be parsed; whitespace still collapses.
	assert.Equal(t, "\\frac{1 +", Clean("\\frac{1   +"))
}

func TestClean_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean("   "))
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"x^2 + 1",
		"\\frac{d}{dx} f(x) = 2x",
		"\\sum_{i=1}^{n} i^2",
		"\\sin x + \\cos y",
		"{x}",
		"not really { latex",
		"\\int_0^\\infty e^{-x} dx",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{"x^2", "\\frac{1}{2}", "3+4", "\\nabla f", "a=b", "\\sin x"}
	for _, v := range valid {
		assert.True(t, IsValid(v), v)
	}
	invalid := []string{"", "hello world", "just words"}
	for _, v := range invalid {
		assert.False(t, IsValid(v), v)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Contains both \int and =, must classify by the earlier rule.
	assert.Equal(t, TypeIntegral, Classify("\\int_0^1 x dx = \\frac{1}{2}"))
	// Derivative-as-fraction precedes Equation.
	assert.Equal(t, TypeDerivative, Classify("\\frac{d}{dx} f = 2x"))
}

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		text string
		want ProblemType
	}{
		{"\\lim_{x \\to 0} \\frac{\\sin x}{x}", TypeLimit},
		{"\\sum_{i=1}^n i", TypeSum},
		{"\\prod_k a_k", TypeProduct},
		{"x = 2", TypeEquation},
		{"\\sqrt{2}", TypeSquareRoot},
		{"\\log x", TypeLogarithm},
		{"\\cos x", TypeTrigonometry},
		{"\\begin{bmatrix} 1 \\end{bmatrix}", TypeMatrix},
		{"\\vec{v}", TypeVector},
		{"x \\to \\infty", TypeInfinity},
		{"x \\in A", TypeSetTheory},
		{"A \\cup B", TypeSetOperations},
		{"\\forall x", TypeLogic},
		{"\\binom{n}{k}", TypeCombinatorics},
		{"x + y", TypeAlgebraic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text), tt.text)
	}
}

func TestClassify_InWordBoundary(t *testing.T) {
	// \int and \infty must not trip the set-theory rule.
	assert.NotEqual(t, TypeSetTheory, Classify("\\infty"))
}

func TestConstructs_CountsDistinct(t *testing.T) {
	assert.Zero(t, Constructs("abc"))
	n := Constructs("\\frac{1}{2} + \\sqrt{x}")
	assert.Equal(t, 2, n)
	assert.Greater(t, Constructs("\\frac{1}{2} + \\sqrt{x^2}"), n, "adding ^ adds a construct")
}

func TestSerializeRoundTrip(t *testing.T) {
	in := "\\frac{x^{2}}{\\sqrt{y}}"
	tree, err := parseLatex(in)
	assert.NoError(t, err)
	assert.Equal(t, in, serialize(tree))
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"{", "}", "x^", "\\frac{1}", "^2"} {
		_, err := parseLatex(in)
		assert.Error(t, err, strings.ReplaceAll(in, "\\", "\\\\"))
	}
}
