package embed

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

func predicates(names ...string) []parse.Predicate {
	out := make([]parse.Predicate, len(names))
	for i, n := range names {
		out[i] = parse.Predicate{Name: n}
	}
	return out
}

// #region dictionary-tests
func TestDictionaryIndices(t *testing.T) {
	d := NewDictionary(predicates("walk", "turn", "stop"))
	want := map[string]int{"walk": 0, "turn": 1, "stop": 2}
	if !reflect.DeepEqual(d.Map(), want) {
		t.Fatalf("expected %v, got %v", want, d.Map())
	}
}

func TestDictionaryOneHot(t *testing.T) {
	d := NewDictionary(predicates("walk", "turn", "stop"))
	got, err := d.OneHot([]string{"turn", "stop"})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{0, 1, 0}, {0, 0, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDictionaryDuplicateLastWins(t *testing.T) {
	d := NewDictionary(predicates("walk", "turn", "walk"))
	idx, ok := d.Index("walk")
	if !ok || idx != 2 {
		t.Fatalf("expected last occurrence index 2, got %d", idx)
	}
	if d.Size() != 2 {
		t.Fatalf("expected size 2, got %d", d.Size())
	}
}

func TestDictionaryUnknownName(t *testing.T) {
	d := NewDictionary(predicates("walk"))
	if _, err := d.OneHot([]string{"fly"}); err == nil {
		t.Fatal("expected error for unknown predicate")
	}
}

// #endregion dictionary-tests

// #region embedder-tests
type fakeEncoder struct {
	rows [][]float64
	err  error
}

func (f *fakeEncoder) EncodeStack(_ context.Context, _ []*parse.ParseCase) ([][]float64, error) {
	return f.rows, f.err
}

func TestOneHotEmbedderPads(t *testing.T) {
	d := NewDictionary(predicates("walk", "turn", "stop"))
	e, err := NewDecisionEmbedder(OneHotKind, d, nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := e.Embed(context.Background(), []string{"walk"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], []float64{1, 0, 0}) || !reflect.DeepEqual(rows[3], []float64{0, 0, 0}) {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestStackEmbedderRequiresEncoder(t *testing.T) {
	_, err := NewDecisionEmbedder(StackKind, NewDictionary(nil), nil, 4)
	if !errors.Is(err, ErrMissingStackEncoder) {
		t.Fatalf("expected ErrMissingStackEncoder, got %v", err)
	}
}

func TestStackEmbedderUsesEncoder(t *testing.T) {
	enc := &fakeEncoder{rows: [][]float64{make([]float64, StackDim)}}
	e, err := NewDecisionEmbedder(StackKind, NewDictionary(nil), enc, 3)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dim() != StackDim {
		t.Fatalf("expected dim %d, got %d", StackDim, e.Dim())
	}
	rows, err := e.Embed(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || len(rows[2]) != StackDim {
		t.Fatalf("unexpected shape %dx%d", len(rows), len(rows[2]))
	}

	enc.err = errors.New("session closed")
	if _, err := e.Embed(context.Background(), nil, nil); !errors.Is(err, enc.err) {
		t.Fatalf("expected wrapped encoder error, got %v", err)
	}
}

func TestPadOverBudget(t *testing.T) {
	if _, err := Pad(make([][]float64, 3), 2, 1); err == nil {
		t.Fatal("expected error when rows exceed budget")
	}
}

// #endregion embedder-tests

// #region glove-tests
func TestReadGloveAndEmbed(t *testing.T) {
	src := "red 1 2\nblue 3 4\n\n"
	g, err := ReadGlove(strings.NewReader(src), 2)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := g.EmbedUtterance([]string{"blue", "green"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{3, 4}, {0, 0}, {0, 0}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("expected %v, got %v", want, rows)
	}
}

func TestReadGloveBadWidth(t *testing.T) {
	if _, err := ReadGlove(strings.NewReader("red 1 2 3\n"), 2); err == nil {
		t.Fatal("expected width error")
	}
}

// #endregion glove-tests
