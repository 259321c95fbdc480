package weighting

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/config"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/valuefn"
)

// #region interface
// ErrBaselineCount is returned when the baseline does not give one value per case.
var ErrBaselineCount = errors.New("baseline value count mismatch")

// CaseWeighter assigns one training weight to every case of every path.
// The result has one slice per path, each as long as the path.
type CaseWeighter interface {
	Weights(ctx context.Context, paths []*parse.ParsePath, ex *parse.Example) ([][]float64, error)
}

// New resolves the configured case weighter. vf is used as the REINFORCE baseline.
func New(cfg config.CaseWeighterConfig, vf valuefn.ValueFunction) (CaseWeighter, error) {
	switch cfg.Type {
	case "mml", "":
		return &MML{Alpha: cfg.Alpha, Beta: cfg.Beta}, nil
	case "reinforce":
		if vf == nil {
			return nil, fmt.Errorf("reinforce case weighter needs a value function")
		}
		return &Reinforce{
			CorrectWeight:   cfg.CorrectWeight,
			IncorrectWeight: cfg.IncorrectWeight,
			Baseline:        vf,
		}, nil
	default:
		return nil, fmt.Errorf("unknown case weighter %q", cfg.Type)
	}
}

// #endregion interface

// #region mml
// MML is the beta-meritocratic weighter: correct paths share weight in
// proportion to p^Beta, smoothed toward uniform by Alpha. Incorrect paths get 0.
type MML struct {
	Alpha float64
	Beta  float64
}

func (m *MML) Weights(_ context.Context, paths []*parse.ParsePath, ex *parse.Example) ([][]float64, error) {
	pathWeights := make([]float64, len(paths))

	var correct []int
	for i, p := range paths {
		if p.Correct(ex.Answer) {
			correct = append(correct, i)
		}
	}
	if len(correct) == 0 {
		return broadcast(paths, pathWeights), nil
	}

	// scores are Beta*log p; Beta 0 is uniform even for log p = -Inf
	scores := make([]float64, len(correct))
	hi := math.Inf(-1)
	for k, i := range correct {
		if m.Beta != 0 {
			scores[k] = m.Beta * paths[i].LogProb()
		}
		if scores[k] > hi {
			hi = scores[k]
		}
	}

	uniform := 1 / float64(len(correct))
	if math.IsInf(hi, 0) || math.IsNaN(hi) {
		for _, i := range correct {
			pathWeights[i] = uniform
		}
		return broadcast(paths, pathWeights), nil
	}

	var z float64
	for _, s := range scores {
		z += math.Exp(s - hi)
	}
	for k, i := range correct {
		q := math.Exp(scores[k]-hi) / z
		pathWeights[i] = (1-m.Alpha)*q + m.Alpha*uniform
	}
	return broadcast(paths, pathWeights), nil
}

// #endregion mml

// #region reinforce
// Reinforce weights each case by (reward - baseline) averaged over the beam.
type Reinforce struct {
	CorrectWeight   float64
	IncorrectWeight float64
	Baseline        valuefn.ValueFunction
}

func (r *Reinforce) Weights(ctx context.Context, paths []*parse.ParsePath, ex *parse.Example) ([][]float64, error) {
	out := make([][]float64, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	n := float64(len(paths))
	for i, p := range paths {
		reward := r.IncorrectWeight
		if p.Correct(ex.Answer) {
			reward = r.CorrectWeight
		}
		baselines, err := r.Baseline.Values(ctx, p.Cases())
		if err != nil {
			return nil, fmt.Errorf("baseline values: %w", err)
		}
		if len(baselines) != p.Len() {
			return nil, fmt.Errorf("baseline values: %w: got %d for %d cases", ErrBaselineCount, len(baselines), p.Len())
		}
		ws := make([]float64, p.Len())
		for j := range ws {
			ws[j] = (reward - baselines[j]) / n
		}
		out[i] = ws
	}
	return out, nil
}

// #endregion reinforce

// #region helpers
// broadcast gives every case of path i the weight pathWeights[i].
func broadcast(paths []*parse.ParsePath, pathWeights []float64) [][]float64 {
	out := make([][]float64, len(paths))
	for i, p := range paths {
		ws := make([]float64, p.Len())
		for j := range ws {
			ws[j] = pathWeights[i]
		}
		out[i] = ws
	}
	return out
}

// Flatten concatenates per-path weights in order.
func Flatten(weights [][]float64) []float64 {
	var out []float64
	for _, ws := range weights {
		out = append(out, ws...)
	}
	return out
}

// #endregion helpers
