package aggregate

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/observability/metrics"
)

// Generic metric names. Each accepts an optional zone filter.
const (
	MetricPaid           = "paid"
	MetricRegular        = "regular"
	MetricSavings        = "savings"
	MetricSavingsClamped = "savings_clamped"
	MetricEntries        = "entries"
	MetricReceiptErrors  = "receipt_errors"
	MetricOldest         = "oldest"
	MetricNewest         = "newest"
)

// MoneyPlaces is the number of decimals money results are rounded to.
const MoneyPlaces = 2

type alias struct {
	metric string
	zone   domain.Zone
}

// Named metrics carry their own zone filter and ignore the zone argument.
var aliases = map[string]alias{
	"blue_paid":             {MetricPaid, domain.ZoneBlue},
	"blue_regular":          {MetricRegular, domain.ZoneBlue},
	"green_paid":            {MetricPaid, domain.ZoneGreen},
	"green_regular":         {MetricRegular, domain.ZoneGreen},
	"blue_entries":          {MetricEntries, domain.ZoneBlue},
	"green_entries":         {MetricEntries, domain.ZoneGreen},
	"total_entries":         {MetricEntries, ""},
	"oldest_entry":          {MetricOldest, ""},
	"newest_entry":          {MetricNewest, ""},
	"receipt_error_entries": {MetricReceiptErrors, ""},
	"total_savings":         {MetricSavings, ""},
	"total_savings_clamped": {MetricSavingsClamped, ""},
	"blue_savings":          {MetricSavingsClamped, domain.ZoneBlue},
	"green_savings":         {MetricSavingsClamped, domain.ZoneGreen},
}

// Names lists the named metrics in reporting order.
var Names = []string{
	"blue_paid", "blue_regular", "blue_savings", "blue_entries",
	"green_paid", "green_regular", "green_savings", "green_entries",
	"total_savings", "total_savings_clamped", "total_entries",
	"oldest_entry", "newest_entry", "receipt_error_entries",
}

var generic = map[string]bool{
	MetricPaid: true, MetricRegular: true, MetricSavings: true, MetricSavingsClamped: true,
	MetricEntries: true, MetricReceiptErrors: true, MetricOldest: true, MetricNewest: true,
}

// Result is the answer to one metric query. Exactly one of Amount, Count or
// Time is set; date queries on an empty log set NoData instead.
type Result struct {
	Metric string           `json:"metric"`
	Zone   domain.Zone      `json:"zone,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Count  *int             `json:"count,omitempty"`
	ByYear map[int]int      `json:"by_year,omitempty"`
	Time   *time.Time       `json:"time,omitempty"`
	NoData bool             `json:"no_data,omitempty"`
}

// Query evaluates a generic or named metric. zone may be empty for all zones
// and is ignored by named metrics.
func (a *Aggregator) Query(name string, zone domain.Zone) (Result, error) {
	metric := name
	if al, ok := aliases[name]; ok {
		metric, zone = al.metric, al.zone
	} else if !generic[name] {
		metrics.IncQuery("unknown", metrics.ResultError)
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, name)
	}
	if zone != "" && !zone.Valid() {
		metrics.IncQuery(name, metrics.ResultError)
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownZone, zone)
	}

	res := Result{Metric: name, Zone: zone}
	switch metric {
	case MetricPaid:
		res.Amount = money(a.SumPaid(zone))
	case MetricRegular:
		res.Amount = money(a.SumRegular(zone))
	case MetricSavings:
		res.Amount = money(a.Savings(zone))
	case MetricSavingsClamped:
		res.Amount = money(a.SavingsClamped(zone))
	case MetricEntries:
		n := a.TotalEntries(zone)
		res.Count = &n
		res.ByYear = a.EntriesByYear(zone)
	case MetricReceiptErrors:
		byYear := a.ReceiptErrors(zone)
		n := 0
		for _, c := range byYear {
			n += c
		}
		res.Count = &n
		res.ByYear = byYear
	case MetricOldest, MetricNewest:
		var t time.Time
		var ok bool
		if metric == MetricOldest {
			t, ok = a.Oldest(zone)
		} else {
			t, ok = a.Newest(zone)
		}
		if ok {
			res.Time = &t
		} else {
			res.NoData = true
		}
	}

	metrics.IncQuery(name, metrics.ResultSuccess)
	return res, nil
}

// Summary evaluates every named metric.
func (a *Aggregator) Summary() map[string]Result {
	out := make(map[string]Result, len(Names))
	for _, name := range Names {
		res, err := a.Query(name, "")
		if err != nil {
			log.Printf("[aggregate] WARNING: metric %s: %v", name, err)
			continue
		}
		out[name] = res
	}
	return out
}

// IsMetric reports whether name is a known generic or named metric.
func IsMetric(name string) bool {
	_, ok := aliases[name]
	return ok || generic[name]
}

func money(d decimal.Decimal) *decimal.Decimal {
	r := d.Round(MoneyPlaces)
	return &r
}
