package codec

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region methods
const (
	methodScore          = "/strongsup.ParseModelService/Score"
	methodScoreBreakdown = "/strongsup.ParseModelService/ScoreBreakdown"
	methodTrainStep      = "/strongsup.ParseModelService/TrainStep"
	methodEncodeStack    = "/strongsup.ParseModelService/EncodeStack"
	methodTrainOnBatch   = "/strongsup.DecomposableService/TrainOnBatch"
)

// #endregion methods

// #region types
// Breakdown holds per-case attention vectors and per-(case, choice, scorer) logits.
type Breakdown struct {
	Attentions [][]float64
	Subscores  [][][]float64
}

// ClassifierBatch is one minibatch for the auxiliary decomposable classifier.
type ClassifierBatch struct {
	Utterances  [][][]float64 // [batch][utter_len][dim]
	Decisions   [][][]float64 // [batch][max_stack_size][dim]
	Labels      [][]float64   // one-hot [batch][2]
	ClassWeight map[int]float64
}

// ClassifierResult is the loss and accuracy of one classifier update.
type ClassifierResult struct {
	Loss     float64
	Accuracy float64
}

// #endregion types

// #region client-struct
// ModelClient talks to the Python model service over gRPC. Payloads are
// google.protobuf.Struct messages.
type ModelClient struct {
	conn   *grpc.ClientConn
	client grpc.ClientConnInterface
	step   atomic.Int64
}

// #endregion client-struct

// #region constructor
// NewModelClient connects to the model service at addr.
func NewModelClient(addr string) (*ModelClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &ModelClient{conn: conn, client: conn}, nil
}

// NewModelClientWithConn creates a ModelClient over an existing connection.
// Used for testing without a real server.
func NewModelClientWithConn(cc grpc.ClientConnInterface) *ModelClient {
	return &ModelClient{client: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection, if the client owns one.
func (c *ModelClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region step
// Step returns the model's global step as last reported by TrainStep.
func (c *ModelClient) Step() int {
	return int(c.step.Load())
}

// #endregion step

// #region score
// Score asks the model for choice logits and stores them on each case.
func (c *ModelClient) Score(ctx context.Context, cases []*parse.ParseCase, caching bool) error {
	if len(cases) == 0 {
		return nil
	}
	req, err := structpb.NewStruct(map[string]any{
		"cases":   encodeCases(cases),
		"caching": caching,
	})
	if err != nil {
		return fmt.Errorf("encode score request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, methodScore, req, resp); err != nil {
		return fmt.Errorf("score rpc: %w", err)
	}
	logits, err := matrix(resp.GetFields()["logits"])
	if err != nil {
		return fmt.Errorf("decode logits: %w", err)
	}
	if len(logits) != len(cases) {
		return fmt.Errorf("score rpc returned %d rows for %d cases", len(logits), len(cases))
	}
	for i, cs := range cases {
		if len(logits[i]) != len(cs.Choices) {
			return fmt.Errorf("case %d: %d logits for %d choices", i, len(logits[i]), len(cs.Choices))
		}
		cs.SetLogits(logits[i])
	}
	return nil
}

// #endregion score

// #region score-breakdown
// ScoreBreakdown returns attentions and per-scorer logits for cases.
func (c *ModelClient) ScoreBreakdown(ctx context.Context, cases []*parse.ParseCase, ignorePreviousUtterances, caching bool) (Breakdown, error) {
	req, err := structpb.NewStruct(map[string]any{
		"cases":                      encodeCases(cases),
		"ignore_previous_utterances": ignorePreviousUtterances,
		"caching":                    caching,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("encode breakdown request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, methodScoreBreakdown, req, resp); err != nil {
		return Breakdown{}, fmt.Errorf("score breakdown rpc: %w", err)
	}
	attentions, err := matrix(resp.GetFields()["attentions"])
	if err != nil {
		return Breakdown{}, fmt.Errorf("decode attentions: %w", err)
	}
	subscores, err := tensor3(resp.GetFields()["subscores"])
	if err != nil {
		return Breakdown{}, fmt.Errorf("decode subscores: %w", err)
	}
	return Breakdown{Attentions: attentions, Subscores: subscores}, nil
}

// #endregion score-breakdown

// #region train-step
// TrainStep sends weighted cases for one parameter update.
func (c *ModelClient) TrainStep(ctx context.Context, cases []*parse.ParseCase, weights []float64, caching bool) error {
	if len(cases) != len(weights) {
		return fmt.Errorf("train step: %d cases but %d weights", len(cases), len(weights))
	}
	ws := make([]any, len(weights))
	for i, w := range weights {
		ws[i] = w
	}
	req, err := structpb.NewStruct(map[string]any{
		"cases":   encodeCases(cases),
		"weights": ws,
		"caching": caching,
	})
	if err != nil {
		return fmt.Errorf("encode train request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, methodTrainStep, req, resp); err != nil {
		return fmt.Errorf("train step rpc: %w", err)
	}
	if v, ok := resp.GetFields()["step"]; ok {
		c.step.Store(int64(v.GetNumberValue()))
	}
	return nil
}

// #endregion train-step

// #region encode-stack
// EncodeStack returns the stack-embedder rows for the cases of one path.
func (c *ModelClient) EncodeStack(ctx context.Context, cases []*parse.ParseCase) ([][]float64, error) {
	req, err := structpb.NewStruct(map[string]any{
		"cases": encodeCases(cases),
	})
	if err != nil {
		return nil, fmt.Errorf("encode stack request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, methodEncodeStack, req, resp); err != nil {
		return nil, fmt.Errorf("encode stack rpc: %w", err)
	}
	return matrix(resp.GetFields()["embeds"])
}

// #endregion encode-stack

// #region train-classifier
// TrainOnBatch runs one update of the auxiliary decomposable classifier.
func (c *ModelClient) TrainOnBatch(ctx context.Context, batch ClassifierBatch) (ClassifierResult, error) {
	classWeight := make(map[string]any, len(batch.ClassWeight))
	for k, v := range batch.ClassWeight {
		classWeight[fmt.Sprint(k)] = v
	}
	req, err := structpb.NewStruct(map[string]any{
		"utterances":   tensorToAny(batch.Utterances),
		"decisions":    tensorToAny(batch.Decisions),
		"labels":       matrixToAny(batch.Labels),
		"class_weight": classWeight,
	})
	if err != nil {
		return ClassifierResult{}, fmt.Errorf("encode classifier batch: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, methodTrainOnBatch, req, resp); err != nil {
		return ClassifierResult{}, fmt.Errorf("train on batch rpc: %w", err)
	}
	return ClassifierResult{
		Loss:     resp.GetFields()["loss"].GetNumberValue(),
		Accuracy: resp.GetFields()["accuracy"].GetNumberValue(),
	}, nil
}

// #endregion train-classifier
