package eval

// #region eval-config
// EvalConfig holds thresholds for validating a batch of predictions.
type EvalConfig struct {
	MinAccuracy       float64 // fail if top-1 accuracy falls below this
	MaxEmptyBeamRatio float64 // fail if more examples than this end with no terminated path
}

// DefaultEvalConfig never fails on accuracy and tolerates every beam being empty.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinAccuracy:       0,
		MaxEmptyBeamRatio: 1,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of one evaluation run.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric returns the named metric value, or 0 if absent.
func (r EvalResult) Metric(name string) float64 {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value
		}
	}
	return 0
}

// #endregion eval-result
