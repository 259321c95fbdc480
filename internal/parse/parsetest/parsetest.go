// Package parsetest provides a small counting domain and a table-driven
// scorer for exercising exploration and training without a real model.
package parsetest

import (
	"context"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region predicates
// Predicate names understood by CounterDomain.
const (
	Inc  = "inc"
	Dec  = "dec"
	Stop = "stop"
)

// Predicates returns the full counter vocabulary.
func Predicates() []parse.Predicate {
	return []parse.Predicate{{Name: Inc}, {Name: Dec}, {Name: Stop}}
}

// #endregion predicates

// #region counter-domain
// CounterDomain starts from the int stored in Context.World; inc and dec
// move the counter, stop terminates. Paths that go negative are pruned.
type CounterDomain struct {
	Executed int
}

// Choices implements parse.Domain.
func (d *CounterDomain) Choices(_ *parse.ParsePath) []parse.Predicate {
	return Predicates()
}

// PathChecker implements parse.Domain.
func (d *CounterDomain) PathChecker(path *parse.ParsePath) bool {
	return Count(path) >= 0
}

// Terminal implements parse.Domain.
func (d *CounterDomain) Terminal(path *parse.ParsePath) bool {
	names := path.DecisionNames()
	return len(names) > 0 && names[len(names)-1] == Stop
}

// Execute implements parse.Domain.
func (d *CounterDomain) Execute(path *parse.ParsePath) ([]parse.Value, error) {
	d.Executed++
	return []parse.Value{parse.NumberValue(Count(path))}, nil
}

// Count evaluates the counter for path.
func Count(path *parse.ParsePath) int {
	n := 0
	if start, ok := path.Context().World.(int); ok {
		n = start
	}
	for _, name := range path.DecisionNames() {
		switch name {
		case Inc:
			n++
		case Dec:
			n--
		}
	}
	return n
}

// Example returns a counter example starting at start with gold answer want.
func Example(id string, start, want int) *parse.Example {
	return &parse.Example{
		ID: id,
		Context: &parse.Context{
			Utterances: []parse.Utterance{{Tokens: []string{"count", "to", "target"}}},
			World:      start,
		},
		Answer: []parse.Value{parse.NumberValue(want)},
	}
}

// #endregion counter-domain

// #region table-scorer
// TableScorer assigns each choice the logit stored under its name.
type TableScorer struct {
	Logits  map[string]float64
	Err     error
	Calls   int
	Cases   int
	Caching bool
}

// Score implements explore.Scorer.
func (s *TableScorer) Score(_ context.Context, cases []*parse.ParseCase, caching bool) error {
	s.Calls++
	s.Caching = caching
	s.Cases += len(cases)
	if s.Err != nil {
		return s.Err
	}
	for _, c := range cases {
		logits := make([]float64, len(c.Choices))
		for i, p := range c.Choices {
			logits[i] = s.Logits[p.Name]
		}
		c.SetLogits(logits)
	}
	return nil
}

// #endregion table-scorer
