package document

import "regexp"

// Math blocks in text pages are delimited with $...$, \[...\] or \(...\).
var mathBlockRes = []*regexp.Regexp{
	regexp.MustCompile(`\$([^$]+)\$`),
	regexp.MustCompile(`\\\[(.+?)\\\]`),
	regexp.MustCompile(`\\\((.+?)\\\)`),
}

// extractMathBlocks returns the delimiter-stripped math regions of a text
// page, in document order per delimiter style.
func extractMathBlocks(text string) []string {
	var blocks []string
	for _, re := range mathBlockRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			blocks = append(blocks, m[1])
		}
	}
	return blocks
}
