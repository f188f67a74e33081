package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SMOU_PORT", "PORT", "SMOU_BACKEND", "SMOU_LOG_PATH", "SMOU_DB_PATH", "SMOU_RATES_FILE",
		"SMOU_DROP_PATH", "SMOU_DROP_FORMAT", "SMOU_INGEST_SCHEDULE", "SMOU_RECEIPT_DIR", "SMOU_CONFIG",
		"LICENSE_PLATE_TARIFF_1", "LICENSE_PLATE_TARIFF_2", "LICENSE_PLATE_TARIFF_3",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SMOU_LOCATION", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage.Backend != BackendJSONL || cfg.Ingest.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.PlateLabels) != 0 {
		t.Errorf("plate labels = %v", cfg.PlateLabels)
	}
}

func TestLoadPlateLabelsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LICENSE_PLATE_TARIFF_1", "1234ABC;ECO")
	t.Setenv("LICENSE_PLATE_TARIFF_2", "broken")
	t.Setenv("LICENSE_PLATE_TARIFF_3", "5678DEF;0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	labels, err := cfg.PlateLabelMap()
	if err != nil {
		t.Fatalf("PlateLabelMap: %v", err)
	}
	if labels["1234ABC"] != domain.LabelEco || labels["5678DEF"] != domain.LabelZero || len(labels) != 2 {
		t.Errorf("labels = %v", labels)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "smou.yaml")
	yml := `
port: "9090"
storage:
  backend: sqlite
  db_path: /tmp/smou.db
ingest:
  drop_path: /data/export.json
  schedule: "0 */30 * * * *"
plate_labels:
  1234ABC: zero
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SMOU_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Storage.Backend != BackendSQLite || cfg.Storage.DBPath != "/tmp/smou.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Ingest.DropPath != "/data/export.json" || cfg.Ingest.Format != "json" {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.PlateLabels["1234ABC"] != "zero" {
		t.Errorf("plate labels = %v", cfg.PlateLabels)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{Storage: StorageConfig{Backend: "mongo"}}},
		{"missing log path", Config{Storage: StorageConfig{Backend: BackendJSONL}}},
		{"bad location", Config{Storage: StorageConfig{Backend: BackendJSONL, LogPath: "x"}, Location: "Mars/Olympus"}},
		{"bad label", Config{
			Storage:     StorageConfig{Backend: BackendJSONL, LogPath: "x"},
			PlateLabels: map[string]string{"1234ABC": "diesel"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseRateTable(t *testing.T) {
	data := []byte(`
rates:
  2025:
    green:
      eco: 2.75
      regular: 3.50
    blue:
      zero: 1.15
`)
	table, err := ParseRateTable(data)
	if err != nil {
		t.Fatalf("ParseRateTable: %v", err)
	}
	rate, err := table.Rate(2025, domain.ZoneGreen, domain.LabelEco)
	if err != nil || !rate.Equal(decimal.RequireFromString("2.75")) {
		t.Errorf("green eco = %s, %v", rate, err)
	}
	if _, err := table.Rate(2024, domain.ZoneGreen, domain.LabelEco); err == nil {
		t.Error("2024 should be unconfigured")
	}
}

func TestParseRateTableKeepsDecimalText(t *testing.T) {
	table, err := ParseRateTable([]byte("rates:\n  2025:\n    blue:\n      eco: 0.1\n      regular: \"2.75\"\n"))
	if err != nil {
		t.Fatalf("ParseRateTable: %v", err)
	}
	rate, err := table.Rate(2025, domain.ZoneBlue, domain.LabelEco)
	if err != nil || rate.String() != "0.1" {
		t.Errorf("blue eco = %s, %v", rate, err)
	}
	rate, err = table.Rate(2025, domain.ZoneBlue, domain.LabelRegular)
	if err != nil || !rate.Equal(decimal.RequireFromString("2.75")) {
		t.Errorf("blue regular = %s, %v", rate, err)
	}

	if _, err := ParseRateTable([]byte("rates:\n  2025:\n    blue:\n      eco: cheap\n")); err == nil {
		t.Error("expected error for non-numeric rate")
	}
}

func TestParseRateTableRejectsUnknownZone(t *testing.T) {
	if _, err := ParseRateTable([]byte("rates:\n  2024:\n    red:\n      regular: 1\n")); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestLoadRateTableDefault(t *testing.T) {
	table, err := LoadRateTable("")
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Years(); len(got) != 3 {
		t.Errorf("years = %v", got)
	}
}

func TestSampleRatesFileMatchesDefaults(t *testing.T) {
	table, err := LoadRateTable("../../testdata/rates.yaml")
	if err != nil {
		t.Fatalf("LoadRateTable: %v", err)
	}
	defaults, err := LoadRateTable("")
	if err != nil {
		t.Fatal(err)
	}
	for _, year := range defaults.Years() {
		for _, zone := range domain.Zones {
			for _, label := range domain.Labels {
				want, _ := defaults.Rate(year, zone, label)
				got, err := table.Rate(year, zone, label)
				if err != nil || !got.Equal(want) {
					t.Errorf("%d/%s/%s = %s (%v), want %s", year, zone, label, got, err, want)
				}
			}
		}
	}
}
