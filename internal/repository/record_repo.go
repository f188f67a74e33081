package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

// ErrNotFound is returned when a record lookup has no match.
var ErrNotFound = domain.ErrRecordNotFound

const recordColumns = `id, start_at, end_at, zone, duration_hours, cost_paid, account,
	base_tariff, applied_tariff, environmental_label, license_plate, receipt_status`

// RecordRepo stores the record log in SQLite. Rows keep their insertion
// order through the seq column; an existing id is never overwritten.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Load returns every record in insertion order.
func (r *RecordRepo) Load(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Append inserts records in order, ignoring ids that are already stored.
func (r *RecordRepo) Append(ctx context.Context, records []domain.Record) error {
	_, err := r.BulkInsert(ctx, records)
	return err
}

// BulkInsert inserts records in one transaction and returns how many rows
// were actually added.
func (r *RecordRepo) BulkInsert(ctx context.Context, records []domain.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO records (`+recordColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range records {
		rec := &records[i]
		var label any
		if rec.EnvironmentalLabel != "" {
			label = string(rec.EnvironmentalLabel)
		}
		res, err := stmt.ExecContext(ctx,
			rec.ID, rec.Start.Format(time.RFC3339), formatNullableTime(rec.End),
			string(rec.Zone), rec.DurationHours.String(), rec.CostPaid.String(), rec.Account,
			formatNullableDecimal(rec.BaseTariff), formatNullableDecimal(rec.AppliedTariff),
			label, rec.LicensePlate, string(rec.ReceiptStatus),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert record %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

func (r *RecordRepo) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanRecord(rows)
}

// --- helpers ---

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatNullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullableDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanRecord(rows *sql.Rows) (*domain.Record, error) {
	var rec domain.Record
	var startAt, zone, duration, cost, status string
	var endAt, baseTariff, appliedTariff, label sql.NullString

	err := rows.Scan(
		&rec.ID, &startAt, &endAt, &zone, &duration, &cost, &rec.Account,
		&baseTariff, &appliedTariff, &label, &rec.LicensePlate, &status,
	)
	if err != nil {
		return nil, err
	}

	if rec.Start, err = time.Parse(time.RFC3339, startAt); err != nil {
		return nil, fmt.Errorf("record %s start: %w", rec.ID, err)
	}
	if endAt.Valid {
		if t, err := time.Parse(time.RFC3339, endAt.String); err == nil {
			rec.End = &t
		}
	}
	rec.Zone = domain.Zone(zone)
	if rec.DurationHours, err = decimal.NewFromString(duration); err != nil {
		return nil, fmt.Errorf("record %s duration: %w", rec.ID, err)
	}
	if rec.CostPaid, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("record %s cost: %w", rec.ID, err)
	}
	if rec.BaseTariff, err = parseNullableDecimal(baseTariff); err != nil {
		return nil, fmt.Errorf("record %s base tariff: %w", rec.ID, err)
	}
	if rec.AppliedTariff, err = parseNullableDecimal(appliedTariff); err != nil {
		return nil, fmt.Errorf("record %s applied tariff: %w", rec.ID, err)
	}
	if label.Valid {
		rec.EnvironmentalLabel = domain.EnvLabel(label.String)
	}
	rec.ReceiptStatus = domain.ReceiptStatus(status)
	rec.Normalize()

	return &rec, nil
}
