package parse

// #region utterance
// Utterance is one tokenized natural-language utterance.
type Utterance struct {
	Tokens []string
}

// #endregion utterance

// #region context
// Context bundles the utterances and the world state a parse executes against.
// World is opaque to the decoder; only the Domain interprets it.
type Context struct {
	Utterances []Utterance
	World      any
}

// Tokens returns all utterance tokens in order.
func (c *Context) Tokens() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, u := range c.Utterances {
		out = append(out, u.Tokens...)
	}
	return out
}

// #endregion context

// #region example
// Example is one immutable training or evaluation unit.
type Example struct {
	ID      string
	Context *Context
	Answer  []Value
}

// #endregion example

// #region predicate
// Predicate is an atomic parsing decision identified by Name.
type Predicate struct {
	Name string
}

// #endregion predicate

// #region weighted-case
// WeightedCase pairs a case with its training weight. Weight 0 excludes the
// case from an update.
type WeightedCase struct {
	Case   *ParseCase
	Weight float64
}

// #endregion weighted-case

// #region domain
// Domain defines which decisions are legal and how a path executes.
type Domain interface {
	// Choices returns the candidate predicates for extending path.
	Choices(path *ParsePath) []Predicate
	// PathChecker returns false if path should be pruned.
	PathChecker(path *ParsePath) bool
	// Terminal reports whether path is a complete derivation.
	Terminal(path *ParsePath) bool
	// Execute evaluates a terminal path against its world.
	Execute(path *ParsePath) ([]Value, error)
}

// #endregion domain
