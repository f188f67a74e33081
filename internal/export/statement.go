package export

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/msanchezt/smou-parking-ha/internal/aggregate"
	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/observability/metrics"
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ZoneSummary is one zone's line of the statement summary.
type ZoneSummary struct {
	Zone    domain.Zone
	Paid    decimal.Decimal
	Regular decimal.Decimal
	Savings decimal.Decimal
	Entries int
}

// Statement is a savings statement over one snapshot of the record log.
type Statement struct {
	GeneratedAt  time.Time
	Zones        []ZoneSummary
	TotalPaid    decimal.Decimal
	TotalRegular decimal.Decimal
	TotalSavings decimal.Decimal
	Entries      int
	Oldest       *time.Time
	Newest       *time.Time
	Items        []aggregate.Item
}

// NewStatement collects the statement figures from agg. Zone savings are
// clamped at zero, the total is not.
func NewStatement(agg *aggregate.Aggregator, now time.Time) *Statement {
	stmt := &Statement{
		GeneratedAt:  now,
		TotalPaid:    agg.SumPaid("").Round(aggregate.MoneyPlaces),
		TotalRegular: agg.SumRegular("").Round(aggregate.MoneyPlaces),
		TotalSavings: agg.Savings("").Round(aggregate.MoneyPlaces),
		Entries:      agg.TotalEntries(""),
		Items:        agg.Items(""),
	}
	for _, z := range domain.Zones {
		stmt.Zones = append(stmt.Zones, ZoneSummary{
			Zone:    z,
			Paid:    agg.SumPaid(z).Round(aggregate.MoneyPlaces),
			Regular: agg.SumRegular(z).Round(aggregate.MoneyPlaces),
			Savings: agg.SavingsClamped(z).Round(aggregate.MoneyPlaces),
			Entries: agg.TotalEntries(z),
		})
	}
	if t, ok := agg.Oldest(""); ok {
		stmt.Oldest = &t
	}
	if t, ok := agg.Newest(""); ok {
		stmt.Newest = &t
	}
	return stmt
}

// Render builds the statement in the given format and returns it with its
// content type.
func Render(stmt *Statement, format string) ([]byte, string, error) {
	started := time.Now()

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatXLSX:
		data, err = BuildStatementXLSX(stmt)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		data, err = BuildStatementPDF(stmt)
		contentType = "application/pdf"
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(format, result, time.Since(started))
	if err != nil {
		return nil, "", fmt.Errorf("render %s: %w", format, err)
	}
	return data, contentType, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "no data"
	}
	return t.Format("2006-01-02")
}

// BuildStatementPDF renders the statement as a single PDF document.
func BuildStatementPDF(stmt *Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Parking Savings Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stmt.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", formatDate(stmt.Oldest), formatDate(stmt.Newest)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Entries: %d", stmt.Entries))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Zone", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Paid (EUR)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Regular (EUR)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Savings (EUR)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Entries", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, z := range stmt.Zones {
		pdf.CellFormat(30, 6, string(z.Zone), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, z.Paid.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, z.Regular.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, z.Savings.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", z.Entries), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, stmt.TotalPaid.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, stmt.TotalRegular.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, stmt.TotalSavings.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 6, fmt.Sprintf("%d", stmt.Entries), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	// Items table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Start", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Zone", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Hours", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Paid", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Regular", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Rate source", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, item := range stmt.Items {
		pdf.CellFormat(30, 6, item.Record.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, item.Record.Start.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(18, 6, string(item.Record.Zone), "1", 0, "C", false, 0, "")
		pdf.CellFormat(18, 6, item.Record.DurationHours.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, item.Resolution.Paid.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, item.Resolution.Regular.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, string(item.Resolution.Source), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders the statement as a workbook with a summary and
// an items sheet.
func BuildStatementXLSX(stmt *Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	itemsSheet := "items"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Parking Savings Statement")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", stmt.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A3", "Oldest entry")
	_ = f.SetCellValue(summarySheet, "B3", formatDate(stmt.Oldest))
	_ = f.SetCellValue(summarySheet, "A4", "Newest entry")
	_ = f.SetCellValue(summarySheet, "B4", formatDate(stmt.Newest))

	_ = f.SetCellValue(summarySheet, "A6", "Zone")
	_ = f.SetCellValue(summarySheet, "B6", "Paid")
	_ = f.SetCellValue(summarySheet, "C6", "Regular")
	_ = f.SetCellValue(summarySheet, "D6", "Savings")
	_ = f.SetCellValue(summarySheet, "E6", "Entries")
	row := 7
	for _, z := range stmt.Zones {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(z.Zone))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), z.Paid.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), z.Regular.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), z.Savings.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), z.Entries)
		row++
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), stmt.TotalPaid.InexactFloat64())
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), stmt.TotalRegular.InexactFloat64())
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), stmt.TotalSavings.InexactFloat64())
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), stmt.Entries)

	headers := []string{"ID", "Start", "Zone", "Hours", "Paid", "Regular", "Rate source"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	for i, item := range stmt.Items {
		r := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", r), item.Record.ID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", r), item.Record.Start.Format("2006-01-02 15:04:05"))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", r), string(item.Record.Zone))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", r), item.Record.DurationHours.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", r), item.Resolution.Paid.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", r), item.Resolution.Regular.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("G%d", r), string(item.Resolution.Source))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
