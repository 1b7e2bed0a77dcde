package latex

// bracket pairs checked by the stack matcher.
var closerFor = map[rune]rune{'{': '}', '[': ']', '(': ')'}

var openerFor = map[rune]rune{'}': '{', ']': '[', ')': '('}

// BalancedBrackets reports whether every {, [ and ( in text is matched by its
// closing symbol in proper nesting order. Mismatched or unclosed brackets fail
// unconditionally; no formula with unbalanced structure is ever persisted.
func BalancedBrackets(text string) bool {
	var stack []rune
	for _, r := range text {
		if _, ok := closerFor[r]; ok {
			stack = append(stack, r)
			continue
		}
		if opener, ok := openerFor[r]; ok {
			if len(stack) == 0 || stack[len(stack)-1] != opener {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
