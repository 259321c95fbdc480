package decoder

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/codec"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/embed"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/explore"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/trainlog"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/valuefn"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/weighting"
)

// #region interfaces
// ParseModel is the scoring provider. codec.ModelClient implements it.
type ParseModel interface {
	explore.Scorer
	ScoreBreakdown(ctx context.Context, cases []*parse.ParseCase, ignorePreviousUtterances, caching bool) (codec.Breakdown, error)
	TrainStep(ctx context.Context, cases []*parse.ParseCase, weights []float64, caching bool) error
	Step() int
}

// Recorder persists training progress. trainlog.Store implements it.
type Recorder interface {
	RecordStep(rec trainlog.StepRecord) error
	RecordRows(step int, rows []decomposable.Row) error
}

// #endregion interfaces

// #region deps
// Deps are the collaborators a Decoder is built from. Model, Domain and
// Predicates are required. The optional fields override what New would
// otherwise build from the config.
type Deps struct {
	Model        ParseModel
	Domain       parse.Domain
	Predicates   []parse.Predicate
	StackEncoder embed.StackEncoder
	Recorder     Recorder

	ValueFunction valuefn.ValueFunction
	CaseWeighter  weighting.CaseWeighter
	TrainPolicy   explore.Policy
	TestPolicy    explore.Policy
}

// #endregion deps

// #region stats
// StepStats summarizes one TrainStep.
type StepStats struct {
	Step       int // decoder train-step count after this step
	Examples   int
	Paths      int // terminated paths across all beams
	Cases      int // cases across all terminated paths
	Reinforced int // cases with non-zero weight sent to the model
	Correct    int // cumulative CorrectPredictions
	All        int // cumulative AllPredictions
}

// #endregion stats

// #region assertion-error
// AssertionError reports a broken internal contract, such as a case weighter
// returning the wrong number of weights.
type AssertionError struct {
	Example string
	Want    int
	Got     int
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("example %q: case weighter returned %d weights for %d cases", e.Example, e.Got, e.Want)
}

// #endregion assertion-error
