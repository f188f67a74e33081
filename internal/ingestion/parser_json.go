package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/receipt"
)

// scraperEntry is one object of the scraper's JSON export.
type scraperEntry struct {
	ID                 string  `json:"ID"`
	StartDate          string  `json:"Start date"`
	EndDate            string  `json:"End date"`
	Duration           string  `json:"Number of hours and minutes"`
	ParkingType        string  `json:"Type of parking"`
	Cost               string  `json:"Cost"`
	Mail               string  `json:"Mail"`
	BaseTariff         string  `json:"base_tariff"`
	AppliedTariff      string  `json:"applied_tariff"`
	LicensePlate       string  `json:"license_plate"`
	EnvironmentalLabel string  `json:"environmental_label"`
	PDFError           *string `json:"pdf_error"`
}

// ParseScraperJSON decodes the scraper's JSON export: an array of objects
// keyed by the portal's column names plus the receipt side fields.
//
// Entries exported before receipts were collected carry no pdf_error key
// and decode without a receipt.
func ParseScraperJSON(data []byte) ([]domain.RawRow, error) {
	var entries []scraperEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	rows := make([]domain.RawRow, 0, len(entries))
	for _, e := range entries {
		row := domain.RawRow{
			ID:           e.ID,
			Start:        e.StartDate,
			End:          e.EndDate,
			Duration:     e.Duration,
			Zone:         e.ParkingType,
			Cost:         e.Cost,
			Account:      e.Mail,
			LicensePlate: e.LicensePlate,
		}
		if e.PDFError != nil {
			row.Receipt = &domain.Receipt{
				Status:             receipt.StatusFromLegacy(*e.PDFError),
				BaseTariff:         e.BaseTariff,
				AppliedTariff:      e.AppliedTariff,
				EnvironmentalLabel: e.EnvironmentalLabel,
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseRowsJSON decodes an array of domain.RawRow objects.
func ParseRowsJSON(data []byte) ([]domain.RawRow, error) {
	var rows []domain.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return rows, nil
}
