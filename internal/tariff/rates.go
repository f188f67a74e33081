package tariff

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

// Rows is the raw shape of a rate table: year -> zone -> label -> hourly rate.
type Rows map[int]map[domain.Zone]map[domain.EnvLabel]decimal.Decimal

// RateTable holds the published hourly rates per billing year, zone and
// environmental label. It is immutable once built.
type RateTable struct {
	rows Rows
}

// NewRateTable validates and copies rows into a RateTable.
func NewRateTable(rows Rows) (*RateTable, error) {
	copied := make(Rows, len(rows))
	for year, zones := range rows {
		copied[year] = make(map[domain.Zone]map[domain.EnvLabel]decimal.Decimal, len(zones))
		for zone, labels := range zones {
			if !zone.Valid() {
				return nil, fmt.Errorf("rate table %d: unsupported zone %q", year, zone)
			}
			copied[year][zone] = make(map[domain.EnvLabel]decimal.Decimal, len(labels))
			for label, rate := range labels {
				if !label.Valid() {
					return nil, fmt.Errorf("rate table %d/%s: unsupported label %q", year, zone, label)
				}
				if rate.IsNegative() {
					return nil, fmt.Errorf("rate table %d/%s/%s: negative rate %s", year, zone, label, rate)
				}
				copied[year][zone][label] = rate
			}
		}
	}
	return &RateTable{rows: copied}, nil
}

// DefaultRateTable returns the rates shipped with the integration's setup
// defaults for 2023 to 2025.
func DefaultRateTable() *RateTable {
	d := decimal.RequireFromString
	base := func(blueZero, greenZero string) map[domain.Zone]map[domain.EnvLabel]decimal.Decimal {
		return map[domain.Zone]map[domain.EnvLabel]decimal.Decimal{
			domain.ZoneBlue: {
				domain.LabelRegular: d("3.00"),
				domain.LabelEco:     d("2.25"),
				domain.LabelZero:    d(blueZero),
			},
			domain.ZoneGreen: {
				domain.LabelRegular: d("3.50"),
				domain.LabelEco:     d("2.75"),
				domain.LabelZero:    d(greenZero),
			},
		}
	}
	t, err := NewRateTable(Rows{
		2023: base("0", "0.50"),
		2024: base("0", "0.50"),
		2025: base("1.15", "1.40"),
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Rate returns the hourly rate for the given billing year, zone and label.
// Lookups outside the configured table fail with domain.ErrUnconfiguredRate.
func (t *RateTable) Rate(year int, zone domain.Zone, label domain.EnvLabel) (decimal.Decimal, error) {
	if t == nil {
		return decimal.Zero, fmt.Errorf("%w: no rate table", domain.ErrUnconfiguredRate)
	}
	zones, ok := t.rows[year]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: year %d", domain.ErrUnconfiguredRate, year)
	}
	rate, ok := zones[zone][label]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d/%s/%s", domain.ErrUnconfiguredRate, year, zone, label)
	}
	return rate, nil
}

// Years returns the configured billing years in ascending order.
func (t *RateTable) Years() []int {
	if t == nil {
		return nil
	}
	years := make([]int, 0, len(t.rows))
	for y := range t.rows {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Rows returns a copy of the table contents.
func (t *RateTable) Rows() Rows {
	out := make(Rows)
	if t == nil {
		return out
	}
	for year, zones := range t.rows {
		out[year] = make(map[domain.Zone]map[domain.EnvLabel]decimal.Decimal, len(zones))
		for zone, labels := range zones {
			out[year][zone] = make(map[domain.EnvLabel]decimal.Decimal, len(labels))
			for label, rate := range labels {
				out[year][zone][label] = rate
			}
		}
	}
	return out
}
