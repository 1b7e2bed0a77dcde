package latex

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildBalanced wraps a seed expression in bracket pairs chosen by ops, so
// every generated string is balanced by construction.
func buildBalanced(ops []int) string {
	s := "x"
	for _, op := range ops {
		switch op % 3 {
		case 0:
			s = "{" + s + "}"
		case 1:
			s = "(" + s + "+1)"
		default:
			s = "[" + s + "]y"
		}
	}
	return s
}

func TestBalancedBrackets_AcceptsConstructedBalanced(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("strings balanced by construction are accepted", prop.ForAll(
		func(ops []int) bool {
			return BalancedBrackets(buildBalanced(ops))
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.Property("one extra opener breaks balance", prop.ForAll(
		func(ops []int, which int) bool {
			opener := "{[("[which%3]
			return !BalancedBrackets(string(opener) + buildBalanced(ops))
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func TestClean_IdempotentProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("cleaning twice equals cleaning once", prop.ForAll(
		func(raw string) bool {
			once := Clean(raw)
			return Clean(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("cleaned output has no whitespace runs", prop.ForAll(
		func(raw string) bool {
			return !strings.Contains(Clean(raw), "  ")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
