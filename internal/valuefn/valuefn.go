package valuefn

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/config"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region example
// Example is one labeled value-function training point.
type Example struct {
	Case   *parse.ParseCase
	Reward float64
}

// ExamplesFromPaths emits one example per case of every path, labeled 1 when
// the path's denotation is correct for ex and 0 otherwise.
func ExamplesFromPaths(paths []*parse.ParsePath, ex *parse.Example) []Example {
	var out []Example
	for _, p := range paths {
		reward := 0.0
		if p.Correct(ex.Answer) {
			reward = 1
		}
		for _, c := range p.Cases() {
			out = append(out, Example{Case: c, Reward: reward})
		}
	}
	return out
}

// #endregion example

// #region interface
// ValueFunction estimates the expected reward of a case.
type ValueFunction interface {
	Values(ctx context.Context, cases []*parse.ParseCase) ([]float64, error)
	TrainStep(ctx context.Context, examples []Example) error
}

// New resolves the configured value function.
func New(cfg config.ValueFunctionConfig) (ValueFunction, error) {
	switch cfg.Type {
	case "constant", "":
		return &Constant{Value: cfg.ConstantValue}, nil
	case "logistic":
		if cfg.LearningRate <= 0 {
			return nil, fmt.Errorf("logistic value function needs positive learning_rate, got %f", cfg.LearningRate)
		}
		return NewLogistic(cfg.LearningRate), nil
	default:
		return nil, fmt.Errorf("unknown value function %q", cfg.Type)
	}
}

// #endregion interface

// #region constant
// Constant returns the same value for every case and never trains.
type Constant struct {
	Value float64
}

func (c *Constant) Values(_ context.Context, cases []*parse.ParseCase) ([]float64, error) {
	out := make([]float64, len(cases))
	for i := range out {
		out[i] = c.Value
	}
	return out, nil
}

func (c *Constant) TrainStep(context.Context, []Example) error { return nil }

// #endregion constant

// #region logistic
// Logistic is an online logistic regression over hashed sparse case features.
type Logistic struct {
	learningRate float64
	weights      map[uint64]float64
	steps        int
}

// NewLogistic returns a zero-initialized model.
func NewLogistic(learningRate float64) *Logistic {
	return &Logistic{learningRate: learningRate, weights: make(map[uint64]float64)}
}

// Steps returns the number of completed train steps.
func (l *Logistic) Steps() int { return l.steps }

func (l *Logistic) Values(_ context.Context, cases []*parse.ParseCase) ([]float64, error) {
	out := make([]float64, len(cases))
	for i, c := range cases {
		out[i] = sigmoid(l.logit(features(c)))
	}
	return out, nil
}

// TrainStep applies one gradient step on the mean log loss of examples.
func (l *Logistic) TrainStep(_ context.Context, examples []Example) error {
	if len(examples) == 0 {
		return nil
	}
	grad := make(map[uint64]float64)
	for _, ex := range examples {
		fs := features(ex.Case)
		diff := sigmoid(l.logit(fs)) - ex.Reward
		for _, f := range fs {
			grad[f] += diff
		}
	}
	scale := l.learningRate / float64(len(examples))
	for f, g := range grad {
		l.weights[f] -= scale * g
	}
	l.steps++
	return nil
}

func (l *Logistic) logit(fs []uint64) float64 {
	var z float64
	for _, f := range fs {
		z += l.weights[f]
	}
	return z
}

func features(c *parse.ParseCase) []uint64 {
	prev := ""
	if len(c.Previous) > 0 {
		prev = c.Previous[len(c.Previous)-1]
	}
	return []uint64{
		hashFeature("bias"),
		hashFeature("decision=" + c.Decision().Name),
		hashFeature("depth=" + strconv.Itoa(c.Depth)),
		hashFeature("prev=" + prev + ">" + c.Decision().Name),
	}
}

func hashFeature(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// #endregion logistic
