package decomposable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/codec"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/embed"
)

// #region constants
const (
	DefaultBatchSize  = 30
	DefaultIterations = 10000

	MetricLoss     = "decomposableLoss"
	MetricAccuracy = "decomposableAccuracy"
)

// DefaultClassWeight up-weights the rare positive class.
func DefaultClassWeight() map[int]float64 {
	return map[int]float64{0: 1, 1: 5}
}

// ErrStackEmbedder is returned when CSV training is asked to use the stack
// embedder, which needs parse cases that CSV rows do not carry.
var ErrStackEmbedder = errors.New("decomposable training needs the one_hot decision embedder")

// #endregion constants

// #region interfaces
// Classifier runs one update of the auxiliary classifier.
type Classifier interface {
	TrainOnBatch(ctx context.Context, batch codec.ClassifierBatch) (codec.ClassifierResult, error)
}

// MetricRecorder receives per-step classifier metrics.
type MetricRecorder interface {
	RecordMetric(name string, value float64, step int) error
}

// #endregion interfaces

// #region trainer
// Config sizes a Trainer. Zero values take the defaults.
type Config struct {
	BatchSize   int
	Iterations  int
	UtterLen    int
	ClassWeight map[int]float64
	Seed        int64
}

// Trainer feeds randomized minibatches of rows to a Classifier.
type Trainer struct {
	classifier  Classifier
	glove       *embed.Glove
	embedder    embed.DecisionEmbedder
	recorder    MetricRecorder
	batchSize   int
	iterations  int
	utterLen    int
	classWeight map[int]float64
	rng         *rand.Rand
	steps       int
}

// NewTrainer validates cfg and wires the collaborators. recorder may be nil.
func NewTrainer(cfg Config, classifier Classifier, glove *embed.Glove, embedder embed.DecisionEmbedder, recorder MetricRecorder) (*Trainer, error) {
	if classifier == nil || glove == nil || embedder == nil {
		return nil, fmt.Errorf("decomposable trainer: classifier, glove and embedder are required")
	}
	if embedder.Kind() == embed.StackKind {
		return nil, ErrStackEmbedder
	}
	if cfg.UtterLen <= 0 {
		return nil, fmt.Errorf("decomposable trainer: utter_len must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.ClassWeight == nil {
		cfg.ClassWeight = DefaultClassWeight()
	}
	return &Trainer{
		classifier:  classifier,
		glove:       glove,
		embedder:    embedder,
		recorder:    recorder,
		batchSize:   cfg.BatchSize,
		iterations:  cfg.Iterations,
		utterLen:    cfg.UtterLen,
		classWeight: cfg.ClassWeight,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Steps is the number of classifier updates run so far.
func (t *Trainer) Steps() int { return t.steps }

// #endregion trainer

// #region train-from-csv
// TrainFromCSV reads path and runs the configured number of minibatch
// updates. Record 0 is the header and is never sampled.
func (t *Trainer) TrainFromCSV(ctx context.Context, path string) error {
	rows, err := ReadCSV(path)
	if err != nil {
		return err
	}
	return t.TrainFromRows(ctx, rows)
}

// TrainFromRows is TrainFromCSV over rows already in memory, rows[0] being
// the header.
func (t *Trainer) TrainFromRows(ctx context.Context, rows []Row) error {
	if len(rows)-1 < t.batchSize {
		return fmt.Errorf("decomposable: %d data rows, need at least %d", len(rows)-1, t.batchSize)
	}
	for i := 0; i < t.iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := make([]Row, t.batchSize)
		for j, idx := range t.rng.Perm(len(rows) - 1)[:t.batchSize] {
			batch[j] = rows[idx+1]
		}
		res, err := t.TrainOnExample(ctx, batch)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if i%100 == 0 {
			log.Printf("[DECOMP] iter=%d loss=%.4f accuracy=%.4f", i, res.Loss, res.Accuracy)
		}
	}
	return nil
}

// #endregion train-from-csv

// #region train-on-example
// TrainOnExample embeds rows and runs one classifier update.
func (t *Trainer) TrainOnExample(ctx context.Context, rows []Row) (codec.ClassifierResult, error) {
	batch := codec.ClassifierBatch{
		Utterances:  make([][][]float64, len(rows)),
		Decisions:   make([][][]float64, len(rows)),
		Labels:      make([][]float64, len(rows)),
		ClassWeight: t.classWeight,
	}
	for i, r := range rows {
		utter, err := t.glove.EmbedUtterance(strings.Fields(r.Utterance), t.utterLen)
		if err != nil {
			return codec.ClassifierResult{}, fmt.Errorf("row %d utterance: %w", i, err)
		}
		dec, err := t.embedder.Embed(ctx, strings.Fields(r.Decisions), nil)
		if err != nil {
			return codec.ClassifierResult{}, fmt.Errorf("row %d decisions: %w", i, err)
		}
		batch.Utterances[i] = utter
		batch.Decisions[i] = dec
		label, err := oneHotLabel(r.Label)
		if err != nil {
			return codec.ClassifierResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		batch.Labels[i] = label
	}

	res, err := t.classifier.TrainOnBatch(ctx, batch)
	if err != nil {
		return codec.ClassifierResult{}, err
	}
	step := t.steps
	t.steps++
	if t.recorder != nil {
		if err := t.recorder.RecordMetric(MetricLoss, res.Loss, step); err != nil {
			log.Printf("[DECOMP] record loss: %v", err)
		}
		if err := t.recorder.RecordMetric(MetricAccuracy, res.Accuracy, step); err != nil {
			log.Printf("[DECOMP] record accuracy: %v", err)
		}
	}
	return res, nil
}

func oneHotLabel(label int) ([]float64, error) {
	switch label {
	case 0:
		return []float64{1, 0}, nil
	case 1:
		return []float64{0, 1}, nil
	default:
		return nil, fmt.Errorf("%w, got %d", ErrBadLabel, label)
	}
}

// #endregion train-on-example
