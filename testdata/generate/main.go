package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/parsing"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

// exportEntry mirrors one object of the scraper's JSON export.
type exportEntry struct {
	ID                 string `json:"ID"`
	StartDate          string `json:"Start date"`
	EndDate            string `json:"End date"`
	Duration           string `json:"Number of hours and minutes"`
	ParkingType        string `json:"Type of parking"`
	Cost               string `json:"Cost"`
	Mail               string `json:"Mail"`
	BaseTariff         string `json:"base_tariff"`
	AppliedTariff      string `json:"applied_tariff"`
	LicensePlate       string `json:"license_plate"`
	EnvironmentalLabel string `json:"environmental_label"`
	PDFError           string `json:"pdf_error"`
}

type vehicle struct {
	plate string
	label domain.EnvLabel
	text  string
}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()
	rates := tariff.DefaultRateTable()

	// Sessions from 2023-11-01 to 2025-03-31 so January rollover is covered.
	startDate := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	dayRange := int(endDate.Sub(startDate).Hours() / 24)

	vehicles := []vehicle{
		{"1234ABC", domain.LabelRegular, "C"},
		{"5678DEF", domain.LabelEco, "ECO"},
		{"9012GHI", domain.LabelZero, "0 emissions"},
	}

	var entries []exportEntry
	for i := 1; i <= 120; i++ {
		id := fmt.Sprintf("%08d", 40000000+i)
		v := vehicles[rng.Intn(len(vehicles))]

		zone, zoneLabel := domain.ZoneBlue, "Zona blava"
		if rng.Float64() < 0.4 {
			zone, zoneLabel = domain.ZoneGreen, "Zona verda"
		}

		day := rng.Intn(dayRange)
		hour := 8 + rng.Intn(11)
		minute := rng.Intn(60)
		start := startDate.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)

		hours := rng.Intn(3)
		minutes := []int{0, 15, 30, 45}[rng.Intn(4)]
		if hours == 0 && minutes == 0 {
			minutes = 30
		}
		end := start.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
		duration := decimal.NewFromInt(int64(hours)).Add(decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)))

		rate, err := rates.Rate(parsing.EffectiveYear(start), zone, v.label)
		if err != nil {
			rate = decimal.Zero
		}
		cost := rate.Mul(duration).Round(2)

		entry := exportEntry{
			ID:                 id,
			StartDate:          start.Format(parsing.TimestampLayout),
			EndDate:            end.Format(parsing.TimestampLayout),
			Duration:           formatDuration(hours, minutes),
			ParkingType:        zoneLabel,
			Cost:               formatEuro(cost),
			Mail:               "driver@example.com",
			BaseTariff:         formatRate(rate),
			AppliedTariff:      formatRate(rate),
			LicensePlate:       v.plate,
			EnvironmentalLabel: v.text,
		}
		if cost.IsZero() {
			entry.Cost = "-"
		}

		roll := rng.Float64()
		switch {
		// 6% receipts not available.
		case roll < 0.06:
			entry.BaseTariff, entry.AppliedTariff, entry.EnvironmentalLabel = "", "", ""
			entry.PDFError = "PDF not available"
		// 3% malformed cost.
		case roll < 0.09:
			entry.Cost = "n/a"
		}

		entries = append(entries, entry)

		// 4% scraped twice.
		if rng.Float64() < 0.04 {
			entries = append(entries, entry)
		}
	}

	writeJSONFile(filepath.Join(baseDir, "scraper_export.json"), entries)
	fmt.Printf("Generated %d export entries -> scraper_export.json\n", len(entries))

	writeRowsCSV(entries, filepath.Join(baseDir, "raw_rows.csv"))
	writeReceipts(entries, filepath.Join(baseDir, "receipts"))

	fmt.Println("Test data generation complete.")
}

func writeRowsCSV(entries []exportEntry, path string) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"id", "start", "end", "duration", "zone", "cost", "account",
		"plate", "base_tariff", "applied_tariff", "environmental_label", "receipt_error",
	})
	for _, e := range entries {
		w.Write([]string{
			e.ID, e.StartDate, e.EndDate, e.Duration, e.ParkingType, e.Cost, e.Mail,
			e.LicensePlate, e.BaseTariff, e.AppliedTariff, e.EnvironmentalLabel, e.PDFError,
		})
	}
	fmt.Printf("Generated %d CSV rows -> raw_rows.csv\n", len(entries))
}

// writeReceipts dumps receipt text for the sessions whose receipt exists, in
// the layout read by receipt.DirSource.
func writeReceipts(entries []exportEntry, dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(err)
	}
	count := 0
	for _, e := range entries {
		if e.PDFError != "" {
			continue
		}
		text := strings.Join([]string{
			"Comprovant d'estacionament",
			"Vehicle " + e.LicensePlate,
			"Tarifa base " + e.BaseTariff,
			"Tarifa aplicada " + e.AppliedTariff,
			"Distintiu ambiental " + e.EnvironmentalLabel + " - Barcelona",
		}, "\n")
		if err := os.WriteFile(filepath.Join(dir, e.ID+".txt"), []byte(text+"\n"), 0o644); err != nil {
			panic(err)
		}
		count++
	}
	fmt.Printf("Generated %d receipts -> receipts/\n", count)
}

func formatDuration(hours, minutes int) string {
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func formatEuro(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}

func formatRate(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + "€/h"
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	candidates := []string{
		"testdata",
		"./testdata",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
