package trainlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListSteps(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		err := s.RecordStep(StepRecord{
			Step:       i,
			ModelStep:  10 * i,
			Examples:   2,
			Paths:      5,
			Cases:      11,
			Reinforced: 4,
			Correct:    i,
			All:        5 * i,
			ExampleIDs: []string{"a", "b"},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordStep: %v", err)
		}
	}

	recs, err := s.ListSteps(2)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Step != 3 || recs[1].Step != 2 {
		t.Fatalf("expected newest first, got steps %d, %d", recs[0].Step, recs[1].Step)
	}
	if recs[0].StepID == "" || recs[0].RunID != s.RunID() {
		t.Errorf("expected generated step id and store run id, got %+v", recs[0])
	}
	if recs[0].ModelStep != 30 || recs[0].Reinforced != 4 || recs[0].All != 15 {
		t.Errorf("unexpected counters %+v", recs[0])
	}
	if len(recs[0].ExampleIDs) != 2 || recs[0].ExampleIDs[1] != "b" {
		t.Errorf("unexpected example ids %v", recs[0].ExampleIDs)
	}
	if !recs[0].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("unexpected created_at %v", recs[0].CreatedAt)
	}
}

func TestRecordStepNoExampleIDs(t *testing.T) {
	s := tempDB(t)
	if err := s.RecordStep(StepRecord{Step: 1}); err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	recs, err := s.ListSteps(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ExampleIDs != nil {
		t.Fatalf("expected one record without ids, got %+v", recs)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be filled")
	}
}

func TestRecordAndListMetrics(t *testing.T) {
	s := tempDB(t)
	for i := 0; i < 3; i++ {
		if err := s.RecordMetric("decomposableLoss", float64(i)/10, i); err != nil {
			t.Fatalf("RecordMetric: %v", err)
		}
		if err := s.RecordMetric("decomposableAccuracy", 0.5, i); err != nil {
			t.Fatalf("RecordMetric: %v", err)
		}
	}

	loss, err := s.ListMetrics("decomposableLoss", 10)
	if err != nil {
		t.Fatalf("ListMetrics: %v", err)
	}
	if len(loss) != 3 {
		t.Fatalf("expected 3 loss points, got %d", len(loss))
	}
	if loss[0].Step != 2 || loss[0].Value != 0.2 {
		t.Errorf("expected newest point first, got %+v", loss[0])
	}

	all, err := s.ListMetrics("", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected limit 4, got %d", len(all))
	}
}

func TestRecordRows(t *testing.T) {
	s := tempDB(t)
	rows := []decomposable.Row{
		{Utterance: "count to ", Decisions: " inc stop", Label: 1},
		{Utterance: "count to ", Decisions: " stop", Label: 0},
	}
	if err := s.RecordRows(1, rows); err != nil {
		t.Fatalf("RecordRows: %v", err)
	}
	if err := s.RecordRows(2, nil); err != nil {
		t.Fatalf("RecordRows empty: %v", err)
	}
	got, err := s.ListRows()
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(got) != 2 || got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if err := s.RecordMetric("x", 1, 0); err != nil {
		t.Fatal(err)
	}
	pts, err := s.ListMetrics("x", 1)
	if err != nil || len(pts) != 1 {
		t.Fatalf("expected one point, got %v, %v", pts, err)
	}
}

func TestSeparateStoresHaveDistinctRunIDs(t *testing.T) {
	a := tempDB(t)
	b := tempDB(t)
	if a.RunID() == b.RunID() {
		t.Fatal("expected distinct run ids")
	}
}
