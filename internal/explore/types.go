package explore

import (
	"context"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/normalize"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region interfaces
// Scorer fills Logits (and local log-probs) for a batch of undecided cases.
type Scorer interface {
	Score(ctx context.Context, cases []*parse.ParseCase, caching bool) error
}

// Policy produces beams for a batch of examples.
type Policy interface {
	// Beams returns the final beam for each example.
	Beams(ctx context.Context, examples []*parse.Example, verbose bool) ([]*parse.Beam, error)
	// IntermediateBeams returns, per example, the beam after every step,
	// starting with the initial single-empty-path beam.
	IntermediateBeams(ctx context.Context, examples []*parse.Example, verbose bool) ([][]*parse.Beam, error)
}

// #endregion interfaces

// #region deps
// Deps are the collaborators shared by all policies.
type Deps struct {
	Scorer       Scorer
	Domain       parse.Domain
	Normalizer   normalize.Normalizer
	MaxStackSize int
	Caching      bool
}

// #endregion deps
