package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

// Aggregator computes metrics over one snapshot of the record log. It never
// modifies the records it was given.
type Aggregator struct {
	records []domain.Record
	rates   *tariff.RateTable
}

// New returns an Aggregator over records. A nil rate table leaves every
// record without a receipt tariff unconfigured.
func New(records []domain.Record, rates *tariff.RateTable) *Aggregator {
	return &Aggregator{records: records, rates: rates}
}

// Item pairs a record with its resolved cost basis.
type Item struct {
	Record     domain.Record     `json:"record"`
	Resolution tariff.Resolution `json:"resolution"`
}

// Records returns the records in the zone, or all records when zone is empty,
// in log order.
func (a *Aggregator) Records(zone domain.Zone) []domain.Record {
	if zone == "" {
		return a.records
	}
	out := make([]domain.Record, 0, len(a.records))
	for _, rec := range a.records {
		if rec.Zone == zone {
			out = append(out, rec)
		}
	}
	return out
}

// Items resolves every record in the zone.
func (a *Aggregator) Items(zone domain.Zone) []Item {
	recs := a.Records(zone)
	items := make([]Item, len(recs))
	for i, rec := range recs {
		items[i] = Item{Record: rec, Resolution: tariff.Resolve(rec, a.rates)}
	}
	return items
}

func (a *Aggregator) SumPaid(zone domain.Zone) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range a.Records(zone) {
		sum = sum.Add(rec.CostPaid)
	}
	return sum
}

func (a *Aggregator) SumRegular(zone domain.Zone) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range a.Records(zone) {
		sum = sum.Add(tariff.Resolve(rec, a.rates).Regular)
	}
	return sum
}

// Savings is SumRegular minus SumPaid and may be negative.
func (a *Aggregator) Savings(zone domain.Zone) decimal.Decimal {
	return a.SumRegular(zone).Sub(a.SumPaid(zone))
}

// SavingsClamped is Savings floored at zero.
func (a *Aggregator) SavingsClamped(zone domain.Zone) decimal.Decimal {
	s := a.Savings(zone)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// EntriesByYear counts records per calendar year of their start. This is not
// the billing year used for rate lookups.
func (a *Aggregator) EntriesByYear(zone domain.Zone) map[int]int {
	out := make(map[int]int)
	for _, rec := range a.Records(zone) {
		out[rec.Start.Year()]++
	}
	return out
}

func (a *Aggregator) TotalEntries(zone domain.Zone) int {
	return len(a.Records(zone))
}

// ReceiptErrors counts records whose receipt was not available, per calendar
// year.
func (a *Aggregator) ReceiptErrors(zone domain.Zone) map[int]int {
	out := make(map[int]int)
	for _, rec := range a.Records(zone) {
		if rec.ReceiptStatus == domain.ReceiptNotAvailable {
			out[rec.Start.Year()]++
		}
	}
	return out
}

// Oldest returns the earliest start. ok is false on an empty log.
func (a *Aggregator) Oldest(zone domain.Zone) (t time.Time, ok bool) {
	for _, rec := range a.Records(zone) {
		if !ok || rec.Start.Before(t) {
			t, ok = rec.Start, true
		}
	}
	return t, ok
}

// Newest returns the latest start. ok is false on an empty log.
func (a *Aggregator) Newest(zone domain.Zone) (t time.Time, ok bool) {
	for _, rec := range a.Records(zone) {
		if !ok || rec.Start.After(t) {
			t, ok = rec.Start, true
		}
	}
	return t, ok
}
