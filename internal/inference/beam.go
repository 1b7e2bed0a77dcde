package inference

import (
	"context"
	"errors"
	"math"
	"sort"
)

// Stepper produces next-token logits for a decoding prefix. The prefix always
// starts with the begin-of-sequence token.
type Stepper interface {
	Step(ctx context.Context, prefix []int64) ([]float32, error)
}

// BeamConfig controls autoregressive beam decoding.
type BeamConfig struct {
	Width         int     // number of live hypotheses
	LengthPenalty float64 // final score = logProb / len^penalty
	NoRepeatNGram int     // ban candidates that would repeat an n-gram (0 disables)
	MaxLength     int     // hard cap on generated tokens
	BOS           int64
	EOS           int64
}

// DefaultBeamConfig returns the decoding parameters used for formula models.
func DefaultBeamConfig() BeamConfig {
	return BeamConfig{
		Width:         5,
		LengthPenalty: 0.6,
		NoRepeatNGram: 2,
		MaxLength:     300,
	}
}

// Hypothesis is one decoded candidate: the generated tokens (BOS and EOS
// excluded) and the chosen-token probability at each step.
type Hypothesis struct {
	Tokens    []int64
	StepProbs []float64
	logProb   float64
	done      bool
}

func (h *Hypothesis) score(lengthPenalty float64) float64 {
	n := len(h.Tokens)
	if n == 0 {
		return h.logProb
	}
	return h.logProb / math.Pow(float64(n), lengthPenalty)
}

type candidate struct {
	parent  *Hypothesis
	token   int64
	prob    float64
	logProb float64
}

// BeamSearch decodes the most likely token sequence under the stepper's
// distribution. It returns the best finished hypothesis, falling back to the
// best live one when nothing emitted EOS within MaxLength steps.
func BeamSearch(ctx context.Context, step Stepper, cfg BeamConfig) (*Hypothesis, error) {
	if cfg.Width < 1 {
		return nil, errors.New("beam width must be at least 1")
	}
	if cfg.MaxLength < 1 {
		return nil, errors.New("max length must be at least 1")
	}

	live := []*Hypothesis{{}}
	var finished []*Hypothesis

	for stepNum := 0; stepNum < cfg.MaxLength && len(live) > 0; stepNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var cands []candidate
		for _, h := range live {
			prefix := make([]int64, 0, len(h.Tokens)+1)
			prefix = append(prefix, cfg.BOS)
			prefix = append(prefix, h.Tokens...)

			logits, err := step.Step(ctx, prefix)
			if err != nil {
				return nil, err
			}
			probs := softmax(logits)

			banned := bannedTokens(h.Tokens, cfg.NoRepeatNGram)
			for tok, p := range probs {
				if p <= 0 || banned[int64(tok)] {
					continue
				}
				cands = append(cands, candidate{
					parent:  h,
					token:   int64(tok),
					prob:    p,
					logProb: h.logProb + math.Log(p),
				})
			}
		}
		if len(cands) == 0 {
			break
		}

		sort.Slice(cands, func(i, j int) bool { return cands[i].logProb > cands[j].logProb })
		if len(cands) > cfg.Width {
			cands = cands[:cfg.Width]
		}

		live = live[:0]
		for i := range cands {
			c := cands[i]
			h := extend(c.parent, c.token, c.prob, c.logProb)
			if c.token == cfg.EOS {
				h.done = true
				h.Tokens = h.Tokens[:len(h.Tokens)-1] // drop EOS from output
				h.StepProbs = h.StepProbs[:len(h.StepProbs)-1]
				finished = append(finished, h)
			} else {
				live = append(live, h)
			}
		}
	}

	best := pickBest(finished, cfg.LengthPenalty)
	if best == nil {
		best = pickBest(live, cfg.LengthPenalty)
	}
	if best == nil {
		return nil, errors.New("beam search produced no hypothesis")
	}
	return best, nil
}

func extend(parent *Hypothesis, token int64, prob, logProb float64) *Hypothesis {
	tokens := make([]int64, len(parent.Tokens), len(parent.Tokens)+1)
	copy(tokens, parent.Tokens)
	probs := make([]float64, len(parent.StepProbs), len(parent.StepProbs)+1)
	copy(probs, parent.StepProbs)
	return &Hypothesis{
		Tokens:    append(tokens, token),
		StepProbs: append(probs, prob),
		logProb:   logProb,
	}
}

// bannedTokens returns the tokens that would complete an n-gram already
// present in the sequence.
func bannedTokens(tokens []int64, n int) map[int64]bool {
	if n < 1 || len(tokens) < n {
		return nil
	}
	banned := make(map[int64]bool)
	suffix := tokens[len(tokens)-(n-1):]
	for i := 0; i+n <= len(tokens); i++ {
		match := true
		for j := range n - 1 {
			if tokens[i+j] != suffix[j] {
				match = false
				break
			}
		}
		if match {
			banned[tokens[i+n-1]] = true
		}
	}
	return banned
}

func pickBest(hyps []*Hypothesis, lengthPenalty float64) *Hypothesis {
	var best *Hypothesis
	for _, h := range hyps {
		if best == nil || h.score(lengthPenalty) > best.score(lengthPenalty) {
			best = h
		}
	}
	return best
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxV := logits[0]
	for _, v := range logits {
		if v > maxV {
			maxV = v
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// SequenceConfidence is the mean chosen-token probability of a decode.
func SequenceConfidence(stepProbs []float64) float64 {
	if len(stepProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range stepProbs {
		s += p
	}
	return s / float64(len(stepProbs))
}
