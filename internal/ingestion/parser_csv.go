package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/receipt"
)

var requiredCSVColumns = []string{"id", "start", "end", "duration", "zone", "cost", "account"}

// ParseRowsCSV parses a comma-separated raw-row export.
//
// Expected header (column order is free, receipt columns are optional):
//
//	id,start,end,duration,zone,cost,account,plate,base_tariff,applied_tariff,environmental_label,receipt_error
func ParseRowsCSV(data []byte) ([]domain.RawRow, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredCSVColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	_, hasReceipt := cols["receipt_error"]

	var rows []domain.RawRow
	lineNum := 1

	for {
		lineNum++
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := domain.RawRow{
			ID:           get("id"),
			Start:        get("start"),
			End:          get("end"),
			Duration:     get("duration"),
			Zone:         get("zone"),
			Cost:         get("cost"),
			Account:      get("account"),
			LicensePlate: get("plate"),
		}
		if hasReceipt {
			row.Receipt = &domain.Receipt{
				Status:             receipt.StatusFromLegacy(get("receipt_error")),
				BaseTariff:         get("base_tariff"),
				AppliedTariff:      get("applied_tariff"),
				EnvironmentalLabel: get("environmental_label"),
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
