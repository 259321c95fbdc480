// Package decoder ties exploration, normalization, case weighting and the
// scoring model together into prediction and training over example batches.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/config"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/embed"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/eval"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/explore"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/normalize"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/valuefn"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/weighting"
)

// #region decoder-struct
// Decoder runs beam exploration for inference and the weighted update loop
// for training. Calls are synchronous and must not overlap.
type Decoder struct {
	cfg        config.Config
	model      ParseModel
	domain     parse.Domain
	normalizer normalize.Normalizer
	dict       *embed.Dictionary
	embedder   embed.DecisionEmbedder

	valueFunction valuefn.ValueFunction
	caseWeighter  weighting.CaseWeighter
	trainPolicy   explore.Policy
	testPolicy    explore.Policy

	recorder Recorder
	tracer   trace.Tracer
	verbose  bool

	trainStepCount     int
	correctPredictions int
	allPredictions     int
	decomposableData   []decomposable.Row
}

// #endregion decoder-struct

// #region constructor
// New builds a Decoder. The normalization mode is checked before anything
// else, so a global config fails without touching the other collaborators.
func New(cfg config.Config, deps Deps) (*Decoder, error) {
	mode, err := normalize.ParseMode(cfg.Normalization)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	normalizer, err := normalize.New(mode)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}

	if deps.Model == nil {
		return nil, errors.New("decoder: parse model is required")
	}
	if deps.Domain == nil {
		return nil, errors.New("decoder: domain is required")
	}

	dict := embed.NewDictionary(deps.Predicates)
	embedder, err := embed.NewDecisionEmbedder(embed.Kind(cfg.PredicateEmbedder), dict, deps.StackEncoder, cfg.MaxStackSize)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}

	vf := deps.ValueFunction
	if vf == nil {
		if vf, err = valuefn.New(cfg.ValueFunction); err != nil {
			return nil, fmt.Errorf("decoder: %w", err)
		}
	}
	weighter := deps.CaseWeighter
	if weighter == nil {
		if weighter, err = weighting.New(cfg.CaseWeighter, vf); err != nil {
			return nil, fmt.Errorf("decoder: %w", err)
		}
	}

	policyDeps := explore.Deps{
		Scorer:       deps.Model,
		Domain:       deps.Domain,
		Normalizer:   normalizer,
		MaxStackSize: cfg.MaxStackSize,
		Caching:      cfg.InputsCaching,
	}
	testPolicy := deps.TestPolicy
	if testPolicy == nil {
		if testPolicy, err = explore.New(cfg.TestExplorationPolicy, policyDeps); err != nil {
			return nil, fmt.Errorf("decoder: test policy: %w", err)
		}
	}
	trainPolicy := deps.TrainPolicy
	if trainPolicy == nil {
		if trainPolicy, err = explore.New(cfg.TrainExplorationPolicy, policyDeps); err != nil {
			return nil, fmt.Errorf("decoder: train policy: %w", err)
		}
	}

	return &Decoder{
		cfg:           cfg,
		model:         deps.Model,
		domain:        deps.Domain,
		normalizer:    normalizer,
		dict:          dict,
		embedder:      embedder,
		valueFunction: vf,
		caseWeighter:  weighter,
		trainPolicy:   trainPolicy,
		testPolicy:    testPolicy,
		recorder:      deps.Recorder,
		tracer:        otel.Tracer("decoder"),
	}, nil
}

// #endregion constructor

// #region accessors
// SetVerbose turns on per-step exploration logging.
func (d *Decoder) SetVerbose(v bool) { d.verbose = v }

// ExplorationPolicy returns the fixed train or test policy.
func (d *Decoder) ExplorationPolicy(train bool) explore.Policy {
	if train {
		return d.trainPolicy
	}
	return d.testPolicy
}

func (d *Decoder) PredicateDictionary() *embed.Dictionary { return d.dict }
func (d *Decoder) Embedder() embed.DecisionEmbedder      { return d.embedder }
func (d *Decoder) Domain() parse.Domain                   { return d.domain }
func (d *Decoder) Caching() bool                          { return d.cfg.InputsCaching }

// Step is the scoring model's global step.
func (d *Decoder) Step() int { return d.model.Step() }

// TrainSteps counts decomposable assembly passes, one per TrainStep.
func (d *Decoder) TrainSteps() int { return d.trainStepCount }

// CorrectPredictions and AllPredictions are running totals over every path
// seen by decomposable assembly.
func (d *Decoder) CorrectPredictions() int { return d.correctPredictions }
func (d *Decoder) AllPredictions() int     { return d.allPredictions }

// DecomposableData returns the rows assembled by the most recent TrainStep.
func (d *Decoder) DecomposableData() []decomposable.Row { return d.decomposableData }

// Probs delegates to the normalizer.
func (d *Decoder) Probs(beam *parse.Beam) []float64 { return d.normalizer.Probs(beam) }

// PathChecker delegates to the domain; false means prune.
func (d *Decoder) PathChecker(path *parse.ParsePath) bool { return d.domain.PathChecker(path) }

// #endregion accessors

// #region predictions
// Predictions returns, per example, the terminated paths of its beam.
func (d *Decoder) Predictions(ctx context.Context, examples []*parse.Example, train bool) ([]*parse.Beam, error) {
	ctx, span := d.tracer.Start(ctx, "decoder.Predictions",
		trace.WithAttributes(
			attribute.Int("examples", len(examples)),
			attribute.Bool("train", train),
		),
	)
	defer span.End()

	beams, err := d.ExplorationPolicy(train).Beams(ctx, examples, d.verbose)
	if err != nil {
		return nil, fail(span, fmt.Errorf("explore: %w", err))
	}
	out := make([]*parse.Beam, len(beams))
	for i, b := range beams {
		out[i] = b.Terminated()
	}
	return out, nil
}

// IntermediateBeams returns the policy's beam after every search step.
func (d *Decoder) IntermediateBeams(ctx context.Context, examples []*parse.Example, train bool) ([][]*parse.Beam, error) {
	return d.ExplorationPolicy(train).IntermediateBeams(ctx, examples, d.verbose)
}

// Evaluate runs the test policy over examples and scores the terminated beams.
func (d *Decoder) Evaluate(ctx context.Context, examples []*parse.Example, h *eval.EvalHarness) (eval.EvalResult, error) {
	beams, err := d.Predictions(ctx, examples, false)
	if err != nil {
		return eval.EvalResult{}, err
	}
	res := h.Run(beams, examples)
	log.Printf("[DECODER] eval: examples=%d accuracy=%.4f oracle=%.4f passed=%v",
		len(examples), res.Metric(eval.MetricAccuracy), res.Metric(eval.MetricOracle), res.Passed)
	return res, nil
}

// #endregion predictions

// #region score-breakdown
// ScoreBreakdown scores every case of every path in one model call and
// returns the attentions and subscores grouped back per path, in input order.
func (d *Decoder) ScoreBreakdown(ctx context.Context, paths []*parse.ParsePath) ([][][]float64, [][][][]float64, error) {
	if len(paths) == 0 {
		return [][][]float64{}, [][][][]float64{}, nil
	}
	ctx, span := d.tracer.Start(ctx, "decoder.ScoreBreakdown",
		trace.WithAttributes(attribute.Int("paths", len(paths))),
	)
	defer span.End()

	var cases []*parse.ParseCase
	bounds := make([]int, len(paths)+1)
	for i, p := range paths {
		cases = append(cases, p.Cases()...)
		bounds[i+1] = len(cases)
	}

	bd, err := d.model.ScoreBreakdown(ctx, cases, false, false)
	if err != nil {
		return nil, nil, fail(span, err)
	}
	if len(bd.Attentions) != len(cases) || len(bd.Subscores) != len(cases) {
		return nil, nil, fail(span, fmt.Errorf("score breakdown: got %d attentions and %d subscores for %d cases",
			len(bd.Attentions), len(bd.Subscores), len(cases)))
	}

	attentions := make([][][]float64, len(paths))
	subscores := make([][][][]float64, len(paths))
	for i := range paths {
		lo, hi := bounds[i], bounds[i+1]
		attentions[i] = bd.Attentions[lo:hi]
		subscores[i] = bd.Subscores[lo:hi]
	}
	return attentions, subscores, nil
}

// #endregion score-breakdown

// #region helpers
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// #endregion helpers
