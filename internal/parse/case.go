package parse

import "math"

// #region parse-case
// ParseCase is one decision point within a path. The scoring model fills
// Logits; DecisionIndex is -1 until a choice is made.
type ParseCase struct {
	Context       *Context
	Depth         int
	Previous      []string
	Choices       []Predicate
	Logits        []float64
	LogProbs      []float64
	DecisionIndex int
}

// #endregion parse-case

// #region set-logits
// SetLogits stores per-choice logits and their locally normalized log-probabilities.
func (c *ParseCase) SetLogits(logits []float64) {
	c.Logits = logits
	c.LogProbs = logSoftmax(logits)
}

func logSoftmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	hi := math.Inf(-1)
	for _, l := range logits {
		if l > hi {
			hi = l
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(l - hi)
	}
	logZ := hi + math.Log(sum)
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = l - logZ
	}
	return out
}

// #endregion set-logits

// #region decision
// Decided reports whether a choice has been made.
func (c *ParseCase) Decided() bool {
	return c.DecisionIndex >= 0 && c.DecisionIndex < len(c.Choices)
}

// Decision returns the chosen predicate, or the zero Predicate if undecided.
func (c *ParseCase) Decision() Predicate {
	if !c.Decided() {
		return Predicate{}
	}
	return c.Choices[c.DecisionIndex]
}

// DecisionLogProb returns the log-probability of the chosen predicate.
func (c *ParseCase) DecisionLogProb() float64 {
	if !c.Decided() || c.DecisionIndex >= len(c.LogProbs) {
		return 0
	}
	return c.LogProbs[c.DecisionIndex]
}

// DecisionLogit returns the raw logit of the chosen predicate.
func (c *ParseCase) DecisionLogit() float64 {
	if !c.Decided() || c.DecisionIndex >= len(c.Logits) {
		return 0
	}
	return c.Logits[c.DecisionIndex]
}

// #endregion decision
