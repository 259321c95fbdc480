package codec

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region mock
type mockConn struct {
	grpc.ClientConnInterface

	responses map[string]map[string]any
	err       error

	method string
	req    *structpb.Struct
}

func (m *mockConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.method = method
	m.req = args.(*structpb.Struct)
	if m.err != nil {
		return m.err
	}
	resp, err := structpb.NewStruct(m.responses[method])
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), resp)
	return nil
}

func testCases() []*parse.ParseCase {
	root := parse.EmptyPath(&parse.Context{Utterances: []parse.Utterance{{Tokens: []string{"go", "left"}}}})
	c := root.NewCase([]parse.Predicate{{Name: "walk"}, {Name: "stop"}})
	c2 := root.NewCase([]parse.Predicate{{Name: "turn"}})
	return []*parse.ParseCase{c, c2}
}

// #endregion mock

// #region constructor-tests
func TestNewModelClient(t *testing.T) {
	client, err := NewModelClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewModelClientWithConn(t *testing.T) {
	c := NewModelClientWithConn(&mockConn{})
	if c.client == nil {
		t.Fatal("expected non-nil internal client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close without owned conn: %v", err)
	}
}

// #endregion constructor-tests

// #region score-tests
func TestScore_Success(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodScore: {"logits": []any{[]any{1.0, 2.0}, []any{0.5}}},
	}}
	c := NewModelClientWithConn(mock)
	cases := testCases()

	if err := c.Score(context.Background(), cases, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.method != methodScore {
		t.Errorf("expected method %s, got %s", methodScore, mock.method)
	}
	if cases[0].Logits[1] != 2.0 || len(cases[0].LogProbs) != 2 {
		t.Errorf("logits not stored: %v / %v", cases[0].Logits, cases[0].LogProbs)
	}
	if !mock.req.GetFields()["caching"].GetBoolValue() {
		t.Error("expected caching=true in request")
	}
	sent := mock.req.GetFields()["cases"].GetListValue().GetValues()
	if len(sent) != 2 {
		t.Fatalf("expected 2 encoded cases, got %d", len(sent))
	}
	tokens := sent[0].GetStructValue().GetFields()["tokens"].GetListValue().GetValues()
	if len(tokens) != 2 || tokens[1].GetStringValue() != "left" {
		t.Errorf("unexpected encoded tokens %v", tokens)
	}
}

func TestScore_RowMismatch(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodScore: {"logits": []any{[]any{1.0, 2.0}}},
	}}
	if err := NewModelClientWithConn(mock).Score(context.Background(), testCases(), false); err == nil {
		t.Fatal("expected error for missing rows")
	}
}

func TestScore_ChoiceMismatch(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodScore: {"logits": []any{[]any{1.0}, []any{0.5}}},
	}}
	if err := NewModelClientWithConn(mock).Score(context.Background(), testCases(), false); err == nil {
		t.Fatal("expected error for wrong logit count")
	}
}

func TestScore_Error(t *testing.T) {
	mock := &mockConn{err: errors.New("rpc failed")}
	err := NewModelClientWithConn(mock).Score(context.Background(), testCases(), false)
	if !errors.Is(err, mock.err) {
		t.Errorf("expected wrapped rpc error, got: %v", err)
	}
}

// #endregion score-tests

// #region breakdown-tests
func TestScoreBreakdown_Success(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodScoreBreakdown: {
			"attentions": []any{[]any{0.1, 0.9}, []any{0.5, 0.5}},
			"subscores":  []any{[]any{[]any{1.0, 2.0, 3.0}}, []any{[]any{4.0, 5.0, 6.0}}},
		},
	}}
	c := NewModelClientWithConn(mock)
	b, err := c.ScoreBreakdown(context.Background(), testCases(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Attentions) != 2 || len(b.Subscores) != 2 || b.Subscores[1][0][2] != 6.0 {
		t.Fatalf("unexpected breakdown %+v", b)
	}
	if mock.req.GetFields()["caching"].GetBoolValue() {
		t.Error("expected caching=false in request")
	}
}

func TestScoreBreakdown_BadPayload(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodScoreBreakdown: {"attentions": "nope"},
	}}
	if _, err := NewModelClientWithConn(mock).ScoreBreakdown(context.Background(), testCases(), false, false); err == nil {
		t.Fatal("expected decode error")
	}
}

// #endregion breakdown-tests

// #region train-tests
func TestTrainStep_UpdatesStep(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodTrainStep: {"step": 12.0},
	}}
	c := NewModelClientWithConn(mock)
	if err := c.TrainStep(context.Background(), testCases(), []float64{0.5, 1}, true); err != nil {
		t.Fatal(err)
	}
	if c.Step() != 12 {
		t.Errorf("expected step 12, got %d", c.Step())
	}
	ws := mock.req.GetFields()["weights"].GetListValue().GetValues()
	if len(ws) != 2 || ws[0].GetNumberValue() != 0.5 {
		t.Errorf("unexpected weights payload %v", ws)
	}
}

func TestTrainStep_LengthMismatch(t *testing.T) {
	mock := &mockConn{}
	if err := NewModelClientWithConn(mock).TrainStep(context.Background(), testCases(), []float64{1}, false); err == nil {
		t.Fatal("expected mismatch error")
	}
	if mock.method != "" {
		t.Error("no rpc should be sent on mismatch")
	}
}

func TestEncodeStack(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodEncodeStack: {"embeds": []any{[]any{1.0, 0.0}}},
	}}
	rows, err := NewModelClientWithConn(mock).EncodeStack(context.Background(), testCases()[:1])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][0] != 1.0 {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestTrainOnBatch(t *testing.T) {
	mock := &mockConn{responses: map[string]map[string]any{
		methodTrainOnBatch: {"loss": 0.7, "accuracy": 0.5},
	}}
	res, err := NewModelClientWithConn(mock).TrainOnBatch(context.Background(), ClassifierBatch{
		Utterances:  [][][]float64{{{1, 2}}},
		Decisions:   [][][]float64{{{0, 1}}},
		Labels:      [][]float64{{0, 1}},
		ClassWeight: map[int]float64{0: 1, 1: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Loss != 0.7 || res.Accuracy != 0.5 {
		t.Fatalf("unexpected result %+v", res)
	}
	cw := mock.req.GetFields()["class_weight"].GetStructValue().GetFields()
	if cw["1"].GetNumberValue() != 5 {
		t.Errorf("expected class weight 1 → 5, got %v", cw["1"])
	}
}

// #endregion train-tests
