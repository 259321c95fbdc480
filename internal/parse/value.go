package parse

import (
	"math"
	"strings"
)

// #region value
// Value is one element of a denotation.
type Value interface {
	Match(other Value) bool
}

// StringValue matches other strings case-insensitively after trimming.
type StringValue string

// Match implements Value.
func (s StringValue) Match(other Value) bool {
	o, ok := other.(StringValue)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(s)), strings.TrimSpace(string(o)))
}

// NumberValue matches other numbers within a small tolerance.
type NumberValue float64

const numberTolerance = 1e-6

// Match implements Value.
func (n NumberValue) Match(other Value) bool {
	o, ok := other.(NumberValue)
	if !ok {
		return false
	}
	return math.Abs(float64(n)-float64(o)) < numberTolerance
}

// #endregion value

// #region check-denotation
// CheckDenotation reports whether predicted is a correct denotation for target.
// A failed execution is never correct.
func CheckDenotation(target, predicted []Value, execErr error) bool {
	if execErr != nil {
		return false
	}
	if len(target) != len(predicted) {
		return false
	}
	for _, t := range target {
		found := false
		for _, p := range predicted {
			if t.Match(p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// #endregion check-denotation
