package latex

import (
	"errors"
	"strings"
	"unicode"
)

// The structural parser reads LaTeX into a small expression tree and
// re-serializes it canonically: script arguments always braced, subscript
// before superscript, known command arguments normalized to braced groups.
// It understands just enough LaTeX for formula canonicalization; anything it
// cannot parse makes Clean fall back to the whitespace-collapsed original.

var errParse = errors.New("latex parse error")

// argCount lists commands whose following groups are mandatory arguments.
var argCount = map[string]int{
	"frac":     2,
	"binom":    2,
	"sqrt":     1,
	"vec":      1,
	"mathbb":   1,
	"overline": 1,
	"text":     1,
}

type nodeKind int

const (
	kindSymbol nodeKind = iota
	kindCommand
	kindGroup
	kindScript
)

type node struct {
	kind nodeKind
	text string  // symbol text or command name
	args []seq   // command arguments
	base *node   // script base
	sub  seq     // subscript content (may be nil)
	sup  seq     // superscript content (may be nil)
}

type seq []*node

type parser struct {
	toks []token
	pos  int
}

type tokKind int

const (
	tokCommand tokKind = iota
	tokOpenBrace
	tokCloseBrace
	tokSup
	tokSub
	tokSymbol
)

type token struct {
	kind tokKind
	text string
}

func tokenize(input string) []token {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\\':
			i++
			if i >= len(runes) {
				toks = append(toks, token{kind: tokSymbol, text: `\`})
				break
			}
			if unicode.IsLetter(runes[i]) {
				start := i
				for i < len(runes) && unicode.IsLetter(runes[i]) {
					i++
				}
				toks = append(toks, token{kind: tokCommand, text: string(runes[start:i])})
			} else {
				// Single-character command such as \, or \{
				toks = append(toks, token{kind: tokCommand, text: string(runes[i])})
				i++
			}
		case r == '{':
			toks = append(toks, token{kind: tokOpenBrace})
			i++
		case r == '}':
			toks = append(toks, token{kind: tokCloseBrace})
			i++
		case r == '^':
			toks = append(toks, token{kind: tokSup})
			i++
		case r == '_':
			toks = append(toks, token{kind: tokSub})
			i++
		default:
			toks = append(toks, token{kind: tokSymbol, text: string(r)})
			i++
		}
	}
	return toks
}

func parseLatex(input string) (seq, error) {
	p := &parser{toks: tokenize(input)}
	s, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, errParse // dangling close brace
	}
	return s, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// parseSeq parses nodes until a closing brace or end of input.
func (p *parser) parseSeq() (seq, error) {
	var s seq
	for {
		t, ok := p.peek()
		if !ok || t.kind == tokCloseBrace {
			return s, nil
		}
		n, err := p.parseScripted()
		if err != nil {
			return nil, err
		}
		s = append(s, n)
	}
}

// parseScripted parses an atom plus any attached ^/_ scripts.
func (p *parser) parseScripted() (*node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	var sup, sub seq
	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		if t.kind == tokSup && sup == nil {
			p.pos++
			sup, err = p.parseScriptArg()
		} else if t.kind == tokSub && sub == nil {
			p.pos++
			sub, err = p.parseScriptArg()
		} else {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if sup == nil && sub == nil {
		return base, nil
	}
	return &node{kind: kindScript, base: base, sup: sup, sub: sub}, nil
}

// parseScriptArg parses the argument of ^ or _: a braced group yields its
// contents, anything else is a single atom.
func (p *parser) parseScriptArg() (seq, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errParse
	}
	if t.kind == tokOpenBrace {
		return p.parseGroupContents()
	}
	n, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return seq{n}, nil
}

func (p *parser) parseAtom() (*node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errParse
	}
	switch t.kind {
	case tokOpenBrace:
		inner, err := p.parseGroupContents()
		if err != nil {
			return nil, err
		}
		return &node{kind: kindGroup, args: []seq{inner}}, nil
	case tokCommand:
		p.pos++
		n := &node{kind: kindCommand, text: t.text}
		for range argCount[t.text] {
			arg, err := p.parseCommandArg()
			if err != nil {
				return nil, err
			}
			n.args = append(n.args, arg)
		}
		return n, nil
	case tokSymbol:
		p.pos++
		return &node{kind: kindSymbol, text: t.text}, nil
	case tokSup, tokSub:
		return nil, errParse // script without a base
	default:
		return nil, errParse
	}
}

// parseCommandArg reads one mandatory argument: a braced group or one atom.
func (p *parser) parseCommandArg() (seq, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errParse
	}
	if t.kind == tokOpenBrace {
		return p.parseGroupContents()
	}
	n, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return seq{n}, nil
}

func (p *parser) parseGroupContents() (seq, error) {
	p.pos++ // consume {
	inner, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokCloseBrace {
		return nil, errParse
	}
	p.pos++
	return inner, nil
}

// serialize writes the canonical text form of a sequence.
func serialize(s seq) string {
	var b strings.Builder
	writeSeq(&b, s)
	return b.String()
}

func writeSeq(b *strings.Builder, s seq) {
	for i, n := range s {
		if i > 0 && needsSpace(s[i-1], n) {
			b.WriteByte(' ')
		}
		writeNode(b, n)
	}
}

// needsSpace prevents a command name from merging with a following letter.
func needsSpace(prev, next *node) bool {
	if prev.kind != kindCommand || len(prev.args) > 0 {
		return false
	}
	if !isLetterCommand(prev.text) {
		return false
	}
	if next.kind == kindSymbol && len(next.text) > 0 {
		r := []rune(next.text)[0]
		return unicode.IsLetter(r)
	}
	return next.kind == kindCommand
}

func isLetterCommand(name string) bool {
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(name) > 0
}

func writeNode(b *strings.Builder, n *node) {
	switch n.kind {
	case kindSymbol:
		b.WriteString(n.text)
	case kindCommand:
		b.WriteByte('\\')
		b.WriteString(n.text)
		for _, arg := range n.args {
			b.WriteByte('{')
			writeSeq(b, arg)
			b.WriteByte('}')
		}
	case kindGroup:
		b.WriteByte('{')
		if len(n.args) > 0 {
			writeSeq(b, n.args[0])
		}
		b.WriteByte('}')
	case kindScript:
		writeNode(b, n.base)
		if n.sub != nil {
			b.WriteString("_{")
			writeSeq(b, n.sub)
			b.WriteByte('}')
		}
		if n.sup != nil {
			b.WriteString("^{")
			writeSeq(b, n.sup)
			b.WriteByte('}')
		}
	}
}
