package eval

import (
	"fmt"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// Metric names reported by Run.
const (
	MetricAccuracy   = "accuracy"
	MetricOracle     = "oracle"
	MetricEmptyBeams = "empty_beams"
	MetricBeamSize   = "mean_beam_size"
)

// #region eval-harness
// EvalHarness scores terminated beams against gold answers.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run evaluates one terminated beam per example. The first path of each beam
// is taken as the prediction; oracle counts an example when any path is
// correct. beams and examples are parallel.
func (h *EvalHarness) Run(beams []*parse.Beam, examples []*parse.Example) EvalResult {
	n := len(examples)
	if n == 0 {
		return EvalResult{Passed: true, Reason: "no examples"}
	}

	var top, oracle, empty, paths int
	for i, ex := range examples {
		var b *parse.Beam
		if i < len(beams) {
			b = beams[i]
		}
		ps := b.Paths()
		paths += len(ps)
		if len(ps) == 0 {
			empty++
			continue
		}
		if ps[0].Correct(ex.Answer) {
			top++
		}
		for _, p := range ps {
			if p.Correct(ex.Answer) {
				oracle++
				break
			}
		}
	}

	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Top-1 accuracy
	accuracy := float64(top) / float64(n)
	accPass := accuracy >= h.config.MinAccuracy
	metrics = append(metrics, EvalMetric{Name: MetricAccuracy, Value: accuracy, Pass: accPass})
	if !accPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("accuracy %.4f below %.4f", accuracy, h.config.MinAccuracy))
	}

	// 2. Oracle accuracy: informational
	metrics = append(metrics, EvalMetric{Name: MetricOracle, Value: float64(oracle) / float64(n), Pass: true})

	// 3. Empty beams
	emptyRatio := float64(empty) / float64(n)
	emptyPass := emptyRatio <= h.config.MaxEmptyBeamRatio
	metrics = append(metrics, EvalMetric{Name: MetricEmptyBeams, Value: emptyRatio, Pass: emptyPass})
	if !emptyPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("empty beam ratio %.4f exceeds %.4f", emptyRatio, h.config.MaxEmptyBeamRatio))
	}

	// 4. Beam size: informational
	metrics = append(metrics, EvalMetric{Name: MetricBeamSize, Value: float64(paths) / float64(n), Pass: true})

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
