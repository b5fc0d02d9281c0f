// Package aggregator persists experiment runs to PostgreSQL: the run
// summary and top results as JSONB, and every evaluation record as a row.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/postgres"
)

// Schema creates the tables the store writes to. EnsureSchema runs it.
const Schema = `
CREATE TABLE IF NOT EXISTS experiment_runs (
    run_id      TEXT PRIMARY KEY,
    summary     JSONB NOT NULL,
    top_results JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_records (
    run_id    TEXT NOT NULL REFERENCES experiment_runs(run_id) ON DELETE CASCADE,
    model     TEXT NOT NULL,
    variant   TEXT NOT NULL,
    qid       TEXT NOT NULL,
    metric    TEXT NOT NULL,
    value     DOUBLE PRECISION NOT NULL,
    evaluated INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, model, variant, qid, metric)
);`

// Store reads and writes experiment runs.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

var _ analytics.RunSource = (*Store)(nil)

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "run-store"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating run tables: %w", err)
	}
	return nil
}

// SaveRun writes the run summary, its top rows and every record in one
// transaction. Saving the same run ID twice replaces the earlier run.
func (s *Store) SaveRun(ctx context.Context, run analytics.RunSummary, records []analytics.EvaluationRecord, top []analytics.Row) error {
	summary, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if top == nil {
		top = []analytics.Row{}
	}
	rows, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("marshaling top results: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM experiment_runs WHERE run_id = $1`, run.RunID); err != nil {
			return fmt.Errorf("clearing run: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO experiment_runs (run_id, summary, top_results, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			run.RunID, summary, rows, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO evaluation_records (run_id, model, variant, qid, metric, value, evaluated)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return fmt.Errorf("preparing record insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, run.RunID, r.Model, r.Variant, r.QID, r.Metric, r.Value, r.Evaluated); err != nil {
				return fmt.Errorf("inserting record %s/%s/%s/%s: %w", r.Variant, r.Model, r.QID, r.Metric, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.RunID, err)
	}

	s.logger.Info("experiment run saved",
		"run_id", run.RunID,
		"records", len(records),
		"top_rows", len(top),
	)
	return nil
}

// LatestRun returns the most recently finished run, or nil, nil when none
// exist yet.
func (s *Store) LatestRun(ctx context.Context) (*analytics.RunSummary, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT summary FROM experiment_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	run, err := decodeSummary(data)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first. Rows that fail to decode
// are skipped.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]analytics.RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT summary FROM experiment_runs ORDER BY finished_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []analytics.RunSummary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run, err := decodeSummary(data)
		if err != nil {
			s.logger.Warn("skipping corrupt run", "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records loads the stored records of one run in report order.
func (s *Store) Records(ctx context.Context, runID string) ([]analytics.EvaluationRecord, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT model, variant, qid, metric, value, evaluated
		   FROM evaluation_records
		  WHERE run_id = $1
		  ORDER BY variant, model, qid = 'all', qid, metric`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records of run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []analytics.EvaluationRecord
	for rows.Next() {
		var r analytics.EvaluationRecord
		if err := rows.Scan(&r.Model, &r.Variant, &r.QID, &r.Metric, &r.Value, &r.Evaluated); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func decodeSummary(data []byte) (analytics.RunSummary, error) {
	var run analytics.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return analytics.RunSummary{}, fmt.Errorf("unmarshaling run summary: %w", err)
	}
	return run, nil
}
