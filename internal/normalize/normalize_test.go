package normalize

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// pathWith builds a one-case path whose chosen logit is logit and whose
// chosen log-prob is log(p).
func pathWith(logit, p float64) *parse.ParsePath {
	root := parse.EmptyPath(&parse.Context{})
	c := root.NewCase([]parse.Predicate{{Name: "a"}, {Name: "b"}})
	// second logit chosen so softmax gives the first choice probability p
	c.SetLogits([]float64{logit, logit - math.Log(p/(1-p))})
	return root.Extend(c, 0)
}

func TestNewGlobalFails(t *testing.T) {
	n, err := New(Global)
	if !errors.Is(err, ErrGlobalUnsupported) {
		t.Fatalf("expected ErrGlobalUnsupported, got %v", err)
	}
	if n != nil {
		t.Fatal("expected nil normalizer")
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("softmax"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	m, err := ParseMode("global")
	if err != nil || m != Global {
		t.Fatalf("expected global to parse, got %v %v", m, err)
	}
}

func TestLocalProbs(t *testing.T) {
	n, err := New(Local)
	if err != nil {
		t.Fatal(err)
	}
	beam := parse.NewBeam([]*parse.ParsePath{pathWith(0, 0.25), pathWith(3, 0.5)})
	probs := n.Probs(beam)

	if len(probs) != beam.Len() {
		t.Fatalf("expected %d probs, got %d", beam.Len(), len(probs))
	}
	for i, p := range beam.Paths() {
		if math.Abs(probs[i]-math.Exp(p.LogProb())) > 1e-12 {
			t.Errorf("prob %d = %f, want exp(log_prob) = %f", i, probs[i], math.Exp(p.LogProb()))
		}
		if probs[i] < 0 {
			t.Errorf("prob %d negative", i)
		}
	}
	if math.Abs(probs[0]-0.25) > 1e-9 || math.Abs(probs[1]-0.5) > 1e-9 {
		t.Errorf("unexpected probs %v", probs)
	}
}

func TestEmptyBeamProbs(t *testing.T) {
	for _, n := range []Normalizer{localNormalizer{}, globalNormalizer{}} {
		if got := n.Probs(parse.NewBeam(nil)); len(got) != 0 {
			t.Errorf("%s: expected empty probs, got %v", n.Mode(), got)
		}
	}
}

func TestGlobalProbsMinShift(t *testing.T) {
	beam := parse.NewBeam([]*parse.ParsePath{pathWith(-2, 0.5), pathWith(1, 0.5), pathWith(4, 0.5)})
	probs := globalNormalizer{}.Probs(beam)

	var sum float64
	for i, p := range probs {
		if p < 0 {
			t.Fatalf("prob %d negative: %f", i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected sum 1, got %f", sum)
	}
	if probs[0] != 0 {
		t.Errorf("minimum path should get 0, got %f", probs[0])
	}
	if math.Abs(probs[2]-6.0/9.0) > 1e-9 {
		t.Errorf("expected 6/9, got %f", probs[2])
	}
}

func TestGlobalProbsEqualScores(t *testing.T) {
	beam := parse.NewBeam([]*parse.ParsePath{pathWith(1, 0.5), pathWith(1, 0.5)})
	probs := globalNormalizer{}.Probs(beam)
	if probs[0] != 0.5 || probs[1] != 0.5 {
		t.Fatalf("expected uniform probs, got %v", probs)
	}
}
