package inference

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Vocab maps between decoder token ids and LaTeX token strings. It is loaded
// from a vocabulary file with one token per line; line number is the token id.
type Vocab struct {
	Tokens []string
	index  map[string]int

	PadID int
	BOSID int
	EOSID int
	UnkID int
}

// specialNames maps the token spellings recognized as special markers.
var specialNames = map[string]string{
	"<pad>": "pad",
	"<s>":   "bos",
	"<bos>": "bos",
	"</s>":  "eos",
	"<eos>": "eos",
	"<unk>": "unk",
}

// LoadVocab loads a vocabulary file. Empty lines are skipped, a UTF-8 BOM on
// the first line is removed, and duplicate tokens keep their first id.
func LoadVocab(path string) (*Vocab, error) {
	if path == "" {
		return nil, errors.New("vocabulary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // user-provided vocabulary file
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing vocabulary file: %v\n", err)
		}
	}()

	scanner := bufio.NewScanner(f)
	tokens := make([]string, 0, 512)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading vocabulary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocabulary is empty: %s", path)
	}
	return NewVocab(tokens), nil
}

// NewVocab builds a Vocab from an ordered token list. Special token ids are
// resolved by name; ids 0..3 are assumed when the names are absent.
func NewVocab(tokens []string) *Vocab {
	v := &Vocab{
		Tokens: tokens,
		index:  make(map[string]int, len(tokens)),
		PadID:  0,
		BOSID:  1,
		EOSID:  2,
		UnkID:  3,
	}
	for i, t := range tokens {
		if _, ok := v.index[t]; !ok {
			v.index[t] = i
		}
		switch specialNames[t] {
		case "pad":
			v.PadID = i
		case "bos":
			v.BOSID = i
		case "eos":
			v.EOSID = i
		case "unk":
			v.UnkID = i
		}
	}
	return v
}

// Size returns the number of tokens.
func (v *Vocab) Size() int { return len(v.Tokens) }

// Token returns the token for an id, or empty string when out of range.
func (v *Vocab) Token(id int) string {
	if v == nil || id < 0 || id >= len(v.Tokens) {
		return ""
	}
	return v.Tokens[id]
}

// ID returns the id of a token, or -1 if not present.
func (v *Vocab) ID(token string) int {
	if v == nil {
		return -1
	}
	if id, ok := v.index[token]; ok {
		return id
	}
	return -1
}

func (v *Vocab) isSpecial(id int) bool {
	return id == v.PadID || id == v.BOSID || id == v.EOSID || id == v.UnkID
}

// Decode joins a token id sequence into LaTeX text. Special tokens are
// dropped and the subword space marker is expanded back to a space.
func (v *Vocab) Decode(ids []int64) string {
	var b strings.Builder
	for _, id := range ids {
		if v.isSpecial(int(id)) {
			continue
		}
		tok := v.Token(int(id))
		b.WriteString(strings.ReplaceAll(tok, "▁", " "))
	}
	return strings.TrimSpace(b.String())
}
