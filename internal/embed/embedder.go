package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region kind
// Kind selects the decision-embedding variant.
type Kind string

const (
	OneHotKind Kind = "one_hot"
	StackKind  Kind = "stack_embedder"
)

// StackDim is the width of stack-embedder rows.
const StackDim = 96

// ErrMissingStackEncoder is returned when the stack embedder is selected
// without an encoder handle.
var ErrMissingStackEncoder = errors.New("stack embedder selected without a stack encoder")

// #endregion kind

// #region interfaces
// StackEncoder computes stack embeddings for the cases of one path.
type StackEncoder interface {
	EncodeStack(ctx context.Context, cases []*parse.ParseCase) ([][]float64, error)
}

// DecisionEmbedder turns a decision sequence into a fixed-size matrix of
// maxStackSize rows.
type DecisionEmbedder interface {
	Kind() Kind
	Dim() int
	Embed(ctx context.Context, decisions []string, cases []*parse.ParseCase) ([][]float64, error)
}

// #endregion interfaces

// #region constructor
// NewDecisionEmbedder resolves the embedder variant once.
func NewDecisionEmbedder(kind Kind, dict *Dictionary, encoder StackEncoder, maxStackSize int) (DecisionEmbedder, error) {
	switch kind {
	case OneHotKind, "":
		return &oneHotEmbedder{dict: dict, maxRows: maxStackSize}, nil
	case StackKind:
		if encoder == nil {
			return nil, ErrMissingStackEncoder
		}
		return &stackEmbedder{encoder: encoder, maxRows: maxStackSize}, nil
	default:
		return nil, fmt.Errorf("unknown predicate embedder %q", kind)
	}
}

// #endregion constructor

// #region one-hot-embedder
type oneHotEmbedder struct {
	dict    *Dictionary
	maxRows int
}

func (e *oneHotEmbedder) Kind() Kind { return OneHotKind }
func (e *oneHotEmbedder) Dim() int   { return e.dict.Size() }

func (e *oneHotEmbedder) Embed(_ context.Context, decisions []string, _ []*parse.ParseCase) ([][]float64, error) {
	rows, err := e.dict.OneHot(decisions)
	if err != nil {
		return nil, err
	}
	return Pad(rows, e.maxRows, e.Dim())
}

// #endregion one-hot-embedder

// #region stack-embedder
type stackEmbedder struct {
	encoder StackEncoder
	maxRows int
}

func (e *stackEmbedder) Kind() Kind { return StackKind }
func (e *stackEmbedder) Dim() int   { return StackDim }

func (e *stackEmbedder) Embed(ctx context.Context, _ []string, cases []*parse.ParseCase) ([][]float64, error) {
	rows, err := e.encoder.EncodeStack(ctx, cases)
	if err != nil {
		return nil, fmt.Errorf("encode stack: %w", err)
	}
	return Pad(rows, e.maxRows, StackDim)
}

// #endregion stack-embedder

// #region pad
// Pad appends zero rows of width dim until there are maxRows rows.
func Pad(rows [][]float64, maxRows, dim int) ([][]float64, error) {
	if len(rows) > maxRows {
		return nil, fmt.Errorf("%d rows exceed budget %d", len(rows), maxRows)
	}
	out := make([][]float64, 0, maxRows)
	out = append(out, rows...)
	for len(out) < maxRows {
		out = append(out, make([]float64, dim))
	}
	return out, nil
}

// #endregion pad
