package trainlog

import "time"

// #region step-record
// StepRecord is one row of the train_steps table.
type StepRecord struct {
	StepID     string    `json:"step_id"`
	RunID      string    `json:"run_id"`
	Step       int       `json:"step"`
	ModelStep  int       `json:"model_step"`
	Examples   int       `json:"examples"`
	Paths      int       `json:"paths"`
	Cases      int       `json:"cases"`
	Reinforced int       `json:"reinforced"`
	Correct    int       `json:"correct"`
	All        int       `json:"all"`
	ExampleIDs []string  `json:"example_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// #endregion step-record

// #region metric-point
// MetricPoint is one scalar logged against a step.
type MetricPoint struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Step      int       `json:"step"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion metric-point
