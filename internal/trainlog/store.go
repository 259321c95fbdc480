package trainlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS train_steps (
	step_id        TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	step           INTEGER NOT NULL,
	model_step     INTEGER NOT NULL,
	examples       INTEGER NOT NULL,
	paths          INTEGER NOT NULL,
	cases          INTEGER NOT NULL,
	reinforced     INTEGER NOT NULL,
	correct        INTEGER NOT NULL,
	total          INTEGER NOT NULL,
	example_ids    TEXT,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	name           TEXT NOT NULL,
	value          REAL NOT NULL,
	step           INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decomposable_rows (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	step           INTEGER NOT NULL,
	utterance      TEXT NOT NULL,
	decisions      TEXT NOT NULL,
	label          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_name ON metrics(name, step);
`
// #endregion schema

// #region store-struct
// Store persists training progress in SQLite. Every record it writes is
// tagged with the run ID chosen when the store was opened.
type Store struct {
	db    *sql.DB
	runID string
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, runID: uuid.New().String()}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID identifies this process's records.
func (s *Store) RunID() string {
	return s.runID
}
// #endregion close

// #region record-step
// RecordStep writes one training step. StepID, RunID and CreatedAt are
// filled in when empty.
func (s *Store) RecordStep(rec StepRecord) error {
	if rec.StepID == "" {
		rec.StepID = uuid.New().String()
	}
	if rec.RunID == "" {
		rec.RunID = s.runID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var idsJSON interface{}
	if len(rec.ExampleIDs) > 0 {
		data, err := json.Marshal(rec.ExampleIDs)
		if err != nil {
			return fmt.Errorf("marshal example ids: %w", err)
		}
		idsJSON = string(data)
	}

	_, err := s.db.Exec(
		`INSERT INTO train_steps (step_id, run_id, step, model_step, examples, paths, cases, reinforced, correct, total, example_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StepID, rec.RunID, rec.Step, rec.ModelStep, rec.Examples, rec.Paths, rec.Cases,
		rec.Reinforced, rec.Correct, rec.All, idsJSON, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}
// #endregion record-step

// #region record-metric
// RecordMetric appends one scalar, in the manner of a tensorboard log_value.
func (s *Store) RecordMetric(name string, value float64, step int) error {
	_, err := s.db.Exec(
		`INSERT INTO metrics (run_id, name, value, step, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.runID, name, value, step, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record metric %s: %w", name, err)
	}
	return nil
}
// #endregion record-metric

// #region record-rows
// RecordRows stores the decomposable rows assembled at step in one transaction.
func (s *Store) RecordRows(step int, rows []decomposable.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO decomposable_rows (run_id, step, utterance, decisions, label) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(s.runID, step, r.Utterance, r.Decisions, r.Label); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}
// #endregion record-rows

// #region list-steps
// ListSteps returns the most recent step records, newest first.
func (s *Store) ListSteps(limit int) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT step_id, run_id, step, model_step, examples, paths, cases, reinforced, correct, total, example_ids, created_at
		 FROM train_steps ORDER BY created_at DESC, step DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var rec StepRecord
		var idsJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.StepID, &rec.RunID, &rec.Step, &rec.ModelStep, &rec.Examples, &rec.Paths,
			&rec.Cases, &rec.Reinforced, &rec.Correct, &rec.All, &idsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if idsJSON.Valid {
			if err := json.Unmarshal([]byte(idsJSON.String), &rec.ExampleIDs); err != nil {
				return nil, fmt.Errorf("unmarshal example ids: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-steps

// #region list-metrics
// ListMetrics returns the most recent points, newest first. An empty name
// matches every metric.
func (s *Store) ListMetrics(name string, limit int) ([]MetricPoint, error) {
	query := `SELECT run_id, name, value, step, created_at FROM metrics`
	args := []interface{}{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		var createdStr string
		if err := rows.Scan(&p.RunID, &p.Name, &p.Value, &p.Step, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		points = append(points, p)
	}
	return points, rows.Err()
}
// #endregion list-metrics

// #region list-rows
// ListRows returns every stored decomposable row in insertion order.
func (s *Store) ListRows() ([]decomposable.Row, error) {
	rows, err := s.db.Query(`SELECT utterance, decisions, label FROM decomposable_rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []decomposable.Row
	for rows.Next() {
		var r decomposable.Row
		if err := rows.Scan(&r.Utterance, &r.Decisions, &r.Label); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion list-rows
