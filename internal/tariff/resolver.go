package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/parsing"
)

// RateSource tells where the hourly rate of a Resolution came from.
type RateSource string

const (
	SourceReceipt      RateSource = "receipt"
	SourceRateTable    RateSource = "rate_table"
	SourceUnconfigured RateSource = "unconfigured"
)

// Resolution is the cost basis decided for one record.
type Resolution struct {
	Paid          decimal.Decimal `json:"paid"`
	Regular       decimal.Decimal `json:"regular"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	Source        RateSource      `json:"source"`
	EffectiveYear int             `json:"effective_year"`
}

// Savings is regular minus paid, unclamped.
func (r Resolution) Savings() decimal.Decimal {
	return r.Regular.Sub(r.Paid)
}

// Resolve decides what the record should have cost at the regular tariff.
//
// A base tariff read from the session receipt wins over the rate table,
// since it already reflects the exact tariff of the session. Otherwise the
// table is consulted with the record's label (regular when absent) for its
// effective year. Records whose year is not configured resolve to a zero
// regular amount and never fail.
func Resolve(rec domain.Record, table *RateTable) Resolution {
	res := Resolution{
		Paid:          rec.CostPaid,
		Regular:       decimal.Zero,
		HourlyRate:    decimal.Zero,
		EffectiveYear: parsing.EffectiveYear(rec.Start),
	}

	if rec.BaseTariff != nil {
		res.HourlyRate = *rec.BaseTariff
		res.Source = SourceReceipt
	} else {
		rate, err := table.Rate(res.EffectiveYear, rec.Zone, rec.Label())
		if err != nil {
			res.Source = SourceUnconfigured
			return res
		}
		res.HourlyRate = rate
		res.Source = SourceRateTable
	}

	res.Regular = res.HourlyRate.Mul(rec.DurationHours)
	return res
}
