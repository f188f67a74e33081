package ingestion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/parsing"
	"github.com/msanchezt/smou-parking-ha/internal/receipt"
)

// MergeOptions carries the collaborators used to turn raw rows into records.
type MergeOptions struct {
	// Location interprets the portal's zone-naive timestamps. Nil means local time.
	Location *time.Location
	// PlateLabels is the configured environmental label per license plate,
	// used when the receipt does not state one.
	PlateLabels map[string]domain.EnvLabel
	// Receipts is consulted for rows that arrive without receipt fields.
	Receipts receipt.Source
}

// MergeResult is the outcome of merging a raw-row batch into a record log.
type MergeResult struct {
	Log        []domain.Record
	Added      []domain.Record
	Duplicates int
	Rejected   []domain.Rejection
}

// NewCount is the number of records appended by the merge.
func (m MergeResult) NewCount() int {
	return len(m.Added)
}

// Merge appends the records minted from rows to existing, skipping rows
// whose ID is already in the log or earlier in the batch. existing is never
// modified; stored records are never rewritten. Rows that fail to parse are
// reported in Rejected and do not abort the batch.
func Merge(ctx context.Context, existing []domain.Record, rows []domain.RawRow, opts MergeOptions) MergeResult {
	seen := make(map[string]struct{}, len(existing)+len(rows))
	for _, rec := range existing {
		seen[rec.ID] = struct{}{}
	}

	var res MergeResult
	for i, row := range rows {
		id := strings.TrimSpace(row.ID)
		if _, dup := seen[id]; dup && id != "" {
			res.Duplicates++
			continue
		}

		rec, err := BuildRecord(ctx, row, opts)
		if err != nil {
			rej := domain.Rejection{Index: i, RowID: id, Reason: err.Error()}
			var fe *FieldError
			if errors.As(err, &fe) {
				rej.Field = fe.Field
			}
			res.Rejected = append(res.Rejected, rej)
			continue
		}

		seen[rec.ID] = struct{}{}
		res.Added = append(res.Added, rec)
	}

	res.Log = make([]domain.Record, 0, len(existing)+len(res.Added))
	res.Log = append(res.Log, existing...)
	res.Log = append(res.Log, res.Added...)
	return res
}

// FieldError ties a row conversion failure to the raw field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// BuildRecord converts one raw row into a Record. Start, cost and zone are
// mandatory; the end timestamp and duration are best-effort.
func BuildRecord(ctx context.Context, row domain.RawRow, opts MergeOptions) (domain.Record, error) {
	id := strings.TrimSpace(row.ID)
	if id == "" {
		return domain.Record{}, &FieldError{Field: "id", Err: domain.ErrMissingID}
	}

	start, err := parsing.ParseTimestamp(row.Start, opts.Location)
	if err != nil {
		return domain.Record{}, &FieldError{Field: "start", Err: err}
	}
	cost, err := parsing.ParseCost(row.Cost)
	if err != nil {
		return domain.Record{}, &FieldError{Field: "cost", Err: err}
	}
	zone, err := parsing.ParseZone(row.Zone)
	if err != nil {
		return domain.Record{}, &FieldError{Field: "zone", Err: err}
	}

	rec := domain.Record{
		ID:            id,
		Start:         start,
		Zone:          zone,
		DurationHours: parsing.ParseDuration(row.Duration),
		CostPaid:      cost,
		Account:       row.Account,
		LicensePlate:  strings.TrimSpace(row.LicensePlate),
	}
	if end, err := parsing.ParseTimestamp(row.End, opts.Location); err == nil {
		rec.End = &end
	}

	rc := fetchReceipt(ctx, id, row.Receipt, opts.Receipts)
	rec.ReceiptStatus = rc.Status
	// Tariffs are only trusted from a receipt that was actually extracted.
	if rc.Status == domain.ReceiptOK {
		if rate, ok := parsing.ParseRate(rc.BaseTariff); ok {
			rec.BaseTariff = &rate
		}
		if rate, ok := parsing.ParseRate(rc.AppliedTariff); ok {
			rec.AppliedTariff = &rate
		}
	}
	if plate := strings.TrimSpace(rc.LicensePlate); plate != "" {
		rec.LicensePlate = plate
	}
	if label, ok := parsing.ParseLabel(rc.EnvironmentalLabel); ok {
		rec.EnvironmentalLabel = label
	} else if label, ok := opts.PlateLabels[rec.LicensePlate]; ok {
		rec.EnvironmentalLabel = label
	}

	return rec, nil
}

func fetchReceipt(ctx context.Context, id string, attached *domain.Receipt, src receipt.Source) domain.Receipt {
	if attached != nil {
		rc := *attached
		if rc.Status == "" {
			rc.Status = domain.ReceiptOK
		}
		return rc
	}
	if src == nil {
		return domain.Receipt{Status: domain.ReceiptNotProcessed}
	}

	rc, err := src.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Receipt{Status: domain.ReceiptNotProcessed}
		}
		return domain.Receipt{Status: receipt.StatusFromError(err)}
	}
	rc.Status = domain.ReceiptOK
	return rc
}
