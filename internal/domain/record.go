package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Zone string

const (
	ZoneBlue  Zone = "blue"
	ZoneGreen Zone = "green"
)

// Zones lists every zone in reporting order.
var Zones = []Zone{ZoneBlue, ZoneGreen}

func (z Zone) Valid() bool {
	return z == ZoneBlue || z == ZoneGreen
}

type EnvLabel string

const (
	LabelRegular EnvLabel = "regular"
	LabelEco     EnvLabel = "eco"
	LabelZero    EnvLabel = "zero"
)

// Labels lists every environmental label in rate-table order.
var Labels = []EnvLabel{LabelRegular, LabelEco, LabelZero}

func (l EnvLabel) Valid() bool {
	return l == LabelRegular || l == LabelEco || l == LabelZero
}

type ReceiptStatus string

const (
	ReceiptOK               ReceiptStatus = "ok"
	ReceiptNotAvailable     ReceiptStatus = "not_available"
	ReceiptProcessingFailed ReceiptStatus = "processing_failed"
	ReceiptNotAccessible    ReceiptStatus = "not_accessible"
	ReceiptNotProcessed     ReceiptStatus = "not_processed"
)

// Record is one stored parking session. Records are append-only: once a
// record with a given ID is in the log it is never rewritten.
type Record struct {
	ID                 string           `json:"id"`
	Start              time.Time        `json:"start"`
	End                *time.Time       `json:"end,omitempty"`
	Zone               Zone             `json:"zone"`
	DurationHours      decimal.Decimal  `json:"duration_hours"`
	CostPaid           decimal.Decimal  `json:"cost_paid"`
	Account            string           `json:"account"`
	BaseTariff         *decimal.Decimal `json:"base_tariff,omitempty"`
	AppliedTariff      *decimal.Decimal `json:"applied_tariff,omitempty"`
	EnvironmentalLabel EnvLabel         `json:"environmental_label,omitempty"`
	LicensePlate       string           `json:"license_plate,omitempty"`
	ReceiptStatus      ReceiptStatus    `json:"receipt_status,omitempty"`
}

// Label returns the environmental label used for rate lookups. Records
// without a label are billed as regular.
func (r Record) Label() EnvLabel {
	if r.EnvironmentalLabel == "" {
		return LabelRegular
	}
	return r.EnvironmentalLabel
}

// Normalize fills defaults for optional fields missing from older stored
// records.
func (r *Record) Normalize() {
	if r.ReceiptStatus == "" {
		r.ReceiptStatus = ReceiptNotProcessed
	}
}

// RawRow is one row as harvested by the external scraper, before parsing.
type RawRow struct {
	ID           string   `json:"id"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Duration     string   `json:"duration"`
	Zone         string   `json:"zone"`
	Cost         string   `json:"cost"`
	Account      string   `json:"account"`
	LicensePlate string   `json:"license_plate,omitempty"`
	Receipt      *Receipt `json:"receipt,omitempty"`
}

// Receipt carries the unparsed fields extracted from a session receipt.
type Receipt struct {
	Status             ReceiptStatus `json:"status"`
	BaseTariff         string        `json:"base_tariff,omitempty"`
	AppliedTariff      string        `json:"applied_tariff,omitempty"`
	EnvironmentalLabel string        `json:"environmental_label,omitempty"`
	LicensePlate       string        `json:"license_plate,omitempty"`
}
