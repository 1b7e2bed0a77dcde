package textmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert_SuperscriptAndFraction(t *testing.T) {
	got := Convert("x^2 + 1/2")
	assert.Contains(t, got, "{x}^{2}")
	assert.Contains(t, got, `\frac{1}{2}`)
}

func TestConvert_NamedFunctions(t *testing.T) {
	assert.Equal(t, `\sin(x)`, Convert("sin(x)"))
	assert.Equal(t, `\cos(\theta )`, Convert("cos(theta)"))
}

func TestConvert_BigOperatorBounds(t *testing.T) {
	assert.Equal(t, `\sum_{i}^{n} i`, Convert("sum_i^n i"))
	assert.Equal(t, `\int_{0}^{1} f`, Convert("int_0^1 f"))
	assert.Equal(t, `\lim_{x \to 0} f(x)`, Convert("lim_x->0 f(x)"))
}

func TestConvert_RelationalOperators(t *testing.T) {
	got := Convert("x >= 0")
	assert.Contains(t, got, `\geq`)
	got = Convert("a != b")
	assert.Contains(t, got, `\neq`)
}

func TestConvert_GreekLetters(t *testing.T) {
	got := Convert("alpha + beta")
	assert.Contains(t, got, `\alpha`)
	assert.Contains(t, got, `\beta`)
}

func TestConvert_Subscript(t *testing.T) {
	assert.Contains(t, Convert("a_n"), "{a}_{n}")
}

func TestConvert_PlainTextPassesThrough(t *testing.T) {
	assert.Equal(t, "just words", Convert("just   words"))
}

func TestConvert_StripsDialect(t *testing.T) {
	assert.Equal(t, `( {x}^{2} )`, Convert(`\displaystyle \left( x^2 \right)`))
	assert.Equal(t, `x \in R`, Convert(`x \in \mathbb{R}`))
}

func TestNormalizeDialect(t *testing.T) {
	assert.Equal(t, `(\frac{a}{b})`, NormalizeDialect(`\left(\frac{a}{b}\right)`))
	assert.Equal(t, `\frac{1}{2}`, NormalizeDialect(`\displaystyle\frac{1}{2}`))
	assert.Equal(t, "a b", NormalizeDialect(`a\,b`))
	assert.Equal(t, `x \in R`, NormalizeDialect(`x \in \mathbb{R}`))
	// Unknown blackboard letters are left alone.
	assert.Equal(t, `\mathbb{F}`, NormalizeDialect(`\mathbb{F}`))
}
