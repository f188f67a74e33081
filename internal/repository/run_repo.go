package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

// RunRepo keeps the audit trail of ingestion runs and the rows they dropped.
type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// RecordRun stores a run together with its rejections.
func (r *RunRepo) RecordRun(ctx context.Context, run domain.IngestRun, rejections []domain.Rejection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_runs
		(id, source_hash, rows_seen, records_added, duplicates_skipped, rejected, ingested_at)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, run.SourceHash, run.RowsSeen, run.RecordsAdded, run.DuplicatesSkipped,
		run.Rejected, run.IngestedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(rejections) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO rejections (run_id, row_index, row_id, field, reason)
			VALUES (?,?,?,?,?)`,
		)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i := range rejections {
			rej := &rejections[i]
			if _, err := stmt.ExecContext(ctx, run.ID, rej.Index, rej.RowID, rej.Field, rej.Reason); err != nil {
				return fmt.Errorf("insert rejection %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunExistsByHash checks whether a payload with the given hash was already
// ingested.
func (r *RunRepo) RunExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ingest_runs WHERE source_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

// ListRuns returns the most recent runs first. Runs stamped within the same
// second come back in reverse insertion order.
func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	limit = clampLimit(limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_hash, rows_seen, records_added, duplicates_skipped, rejected, ingested_at
		FROM ingest_runs ORDER BY ingested_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.IngestRun
	for rows.Next() {
		var run domain.IngestRun
		var ingestedAt string
		if err := rows.Scan(&run.ID, &run.SourceHash, &run.RowsSeen, &run.RecordsAdded,
			&run.DuplicatesSkipped, &run.Rejected, &ingestedAt); err != nil {
			return nil, err
		}
		run.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const maxListLimit = 500

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

type RejectionFilter struct {
	RunID string
	RowID string
	Field string
	Page  int
	Limit int
}

func (r *RunRepo) ListRejections(ctx context.Context, f RejectionFilter) ([]domain.Rejection, int, error) {
	where, args := buildRejectionWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rejections"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	f.Limit = clampLimit(f.Limit)
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := total
	if f.Page-1 <= total/f.Limit {
		offset = (f.Page - 1) * f.Limit
	}

	q := "SELECT run_id, row_index, row_id, field, reason FROM rejections" + where +
		" ORDER BY run_id, row_index LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []domain.Rejection
	for rows.Next() {
		var rej domain.Rejection
		if err := rows.Scan(&rej.RunID, &rej.Index, &rej.RowID, &rej.Field, &rej.Reason); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		out = append(out, rej)
	}
	return out, total, rows.Err()
}

func buildRejectionWhere(f RejectionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.RowID != "" {
		clauses = append(clauses, "row_id = ?")
		args = append(args, f.RowID)
	}
	if f.Field != "" {
		clauses = append(clauses, "field = ?")
		args = append(args, f.Field)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
