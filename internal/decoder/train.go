package decoder

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/trainlog"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/valuefn"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/weighting"
)

// #region train-step
// TrainStep explores examples with the train policy and makes one value
// function update and one model update from the weighted cases. A weighter
// that miscounts returns *AssertionError before either update.
func (d *Decoder) TrainStep(ctx context.Context, examples []*parse.Example) (StepStats, error) {
	ctx, span := d.tracer.Start(ctx, "decoder.TrainStep",
		trace.WithAttributes(attribute.Int("examples", len(examples))),
	)
	defer span.End()

	beams, err := d.Predictions(ctx, examples, true)
	if err != nil {
		return StepStats{}, fail(span, err)
	}

	batch := d.assembleDecomposable(beams, examples)

	stats := StepStats{Step: d.trainStepCount, Examples: len(examples)}
	var cases []*parse.ParseCase
	var weights []float64
	var vfExamples []valuefn.Example
	for i, ex := range examples {
		paths := beams[i].Paths()
		perPath, err := d.caseWeighter.Weights(ctx, paths, ex)
		if err != nil {
			return StepStats{}, fail(span, fmt.Errorf("weight example %q: %w", ex.ID, err))
		}
		flat := weighting.Flatten(perPath)
		if want := beams[i].NumCases(); len(flat) != want {
			return StepStats{}, fail(span, &AssertionError{Example: ex.ID, Want: want, Got: len(flat)})
		}
		for _, p := range paths {
			cases = append(cases, p.Cases()...)
		}
		weights = append(weights, flat...)
		vfExamples = append(vfExamples, valuefn.ExamplesFromPaths(paths, ex)...)
		stats.Paths += len(paths)
	}
	stats.Cases = len(cases)

	cases, weights = pruneZero(cases, weights)
	stats.Reinforced = len(cases)

	if err := d.valueFunction.TrainStep(ctx, vfExamples); err != nil {
		return StepStats{}, fail(span, fmt.Errorf("value function update: %w", err))
	}
	if err := d.model.TrainStep(ctx, cases, weights, false); err != nil {
		return StepStats{}, fail(span, fmt.Errorf("model update: %w", err))
	}

	stats.Correct = d.correctPredictions
	stats.All = d.allPredictions
	span.SetAttributes(
		attribute.Int("cases", stats.Cases),
		attribute.Int("reinforced", stats.Reinforced),
	)
	if d.verbose {
		log.Printf("[DECODER] step=%d examples=%d paths=%d cases=%d reinforced=%d correct=%d/%d",
			stats.Step, stats.Examples, stats.Paths, stats.Cases, stats.Reinforced, stats.Correct, stats.All)
	}
	d.record(stats, examples, batch.Rows)
	return stats, nil
}

// pruneZero drops pairs whose weight is exactly zero, keeping order.
func pruneZero(cases []*parse.ParseCase, weights []float64) ([]*parse.ParseCase, []float64) {
	keptCases := make([]*parse.ParseCase, 0, len(cases))
	keptWeights := make([]float64, 0, len(weights))
	for i, w := range weights {
		if w == 0 {
			continue
		}
		keptCases = append(keptCases, cases[i])
		keptWeights = append(keptWeights, w)
	}
	return keptCases, keptWeights
}

// #endregion train-step

// #region decomposable
// assembleDecomposable turns the train beams into classifier rows and
// advances the correctness counters.
func (d *Decoder) assembleDecomposable(beams []*parse.Beam, examples []*parse.Example) decomposable.Batch {
	d.trainStepCount++
	batch := decomposable.Assemble(beams, examples)
	d.correctPredictions += batch.CorrectCount()
	d.allPredictions += len(batch.Rows)
	d.decomposableData = batch.Rows
	return batch
}

// #endregion decomposable

// #region record
// record hands the step to the Recorder. Failures are logged only.
func (d *Decoder) record(stats StepStats, examples []*parse.Example, rows []decomposable.Row) {
	if d.recorder == nil {
		return
	}
	ids := make([]string, 0, len(examples))
	for _, ex := range examples {
		ids = append(ids, ex.ID)
	}
	err := d.recorder.RecordStep(trainlog.StepRecord{
		Step:       stats.Step,
		ModelStep:  d.model.Step(),
		Examples:   stats.Examples,
		Paths:      stats.Paths,
		Cases:      stats.Cases,
		Reinforced: stats.Reinforced,
		Correct:    stats.Correct,
		All:        stats.All,
		ExampleIDs: ids,
	})
	if err != nil {
		log.Printf("[DECODER] record step %d: %v", stats.Step, err)
	}
	if err := d.recorder.RecordRows(stats.Step, rows); err != nil {
		log.Printf("[DECODER] record rows for step %d: %v", stats.Step, err)
	}
}

// #endregion record
