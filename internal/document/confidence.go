package document

import (
	"unicode/utf8"

	"github.com/victoMR/testFlow/internal/latex"
)

// Document-level scoring starts from the recognizer confidence in [0,1] and
// adds fixed bonuses for structural evidence that the text really is a
// formula, then scales to [0,100]. Only here does the 0-100 scale exist;
// every other package works in [0,1].
const (
	bonusLength    = 0.20 // more than 10 characters
	bonusConstruct = 0.15 // per distinct recognized construct
	bonusBalance   = 0.20 // brackets balance
	bonusValidity  = 0.30 // passes the validity battery

	lengthBonusThreshold = 10

	// PersistThreshold is the minimum score for a formula to be written to
	// the store.
	PersistThreshold = 90.0
)

// scoreFormula computes the [0,100] document score for cleaned formula text.
func scoreFormula(text string, baseConfidence float64) float64 {
	score := baseConfidence
	if utf8.RuneCountInString(text) > lengthBonusThreshold {
		score += bonusLength
	}
	score += bonusConstruct * float64(latex.Constructs(text))
	if latex.BalancedBrackets(text) {
		score += bonusBalance
	}
	if latex.IsValid(text) {
		score += bonusValidity
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score * 100
}
