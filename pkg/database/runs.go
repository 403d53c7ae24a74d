package database

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codeready-toolchain/secretmask/pkg/batch"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// RunRecord is one stored batch run.
type RunRecord struct {
	ID          string
	Root        string
	DumpConfig  bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Files       int
	Failed      int
	Redacted    int
	FieldErrors int

	// Results is only populated by GetRun.
	Results []FileResult
}

// FileResult is the stored outcome of one file of a run.
type FileResult struct {
	Path        string
	Kind        string
	Strategy    string
	Completed   bool
	Redacted    int
	FieldErrors int
	Error       string
}

// RunStore records batch runs in PostgreSQL. It implements batch.Recorder.
type RunStore struct {
	db *stdsql.DB
}

// NewRunStore creates a store over a migrated database.
func NewRunStore(db *stdsql.DB) *RunStore {
	return &RunStore{db: db}
}

var _ batch.Recorder = (*RunStore)(nil)

// SaveRun stores a run summary and its per-file results in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, summary *batch.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO mask_runs (id, root, dump_config, started_at, finished_at, files, failed, redacted, field_errors)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		summary.RunID, summary.Root, summary.DumpConfig, summary.StartedAt, summary.FinishedAt,
		summary.Files(), summary.Failed(), summary.Redacted(), summary.FieldErrors())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}

	for i, report := range summary.Reports {
		var reportErr stdsql.NullString
		if report.Err != nil {
			reportErr = stdsql.NullString{String: report.Err.Error(), Valid: true}
		}
		strategy := ""
		if len(report.Resources) > 0 {
			strategy = report.Strategy().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO mask_file_results (run_id, position, path, kind, strategy, completed, redacted, field_errors, error)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
			summary.RunID, i, report.Path, report.Kind(), strategy, report.Completed,
			report.Redacted, len(report.FieldErrors), reportErr)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", report.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", summary.RunID, err)
	}
	return nil
}

// GetRun returns a run with its per-file results in processing order.
func (s *RunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id::text, root, dump_config, started_at, finished_at, files, failed, redacted, field_errors
		FROM mask_runs WHERE id = $1::uuid`, id)

	run, err := scanRun(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, kind, strategy, completed, redacted, field_errors, error
		FROM mask_file_results WHERE run_id = $1::uuid ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get results of run %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r FileResult
		var resultErr stdsql.NullString
		if err := rows.Scan(&r.Path, &r.Kind, &r.Strategy, &r.Completed, &r.Redacted, &r.FieldErrors, &resultErr); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Error = resultErr.String
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results of run %s: %w", id, err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first, without per-file results.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id::text, root, dump_config, started_at, finished_at, files, failed, redacted, field_errors
		FROM mask_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRunsBefore deletes runs started before cutoff together with their
// file results and returns the number of deleted runs.
func (s *RunStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mask_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var run RunRecord
	err := row.Scan(&run.ID, &run.Root, &run.DumpConfig, &run.StartedAt, &run.FinishedAt,
		&run.Files, &run.Failed, &run.Redacted, &run.FieldErrors)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
