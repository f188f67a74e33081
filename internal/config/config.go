package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/parsing"
)

const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// StorageConfig selects where the record log lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	LogPath string `yaml:"log_path"`
	DBPath  string `yaml:"db_path"`
}

// IngestConfig describes the scheduled pickup of scraper exports.
type IngestConfig struct {
	DropPath   string `yaml:"drop_path"`
	Format     string `yaml:"format"`
	Schedule   string `yaml:"schedule"`
	ReceiptDir string `yaml:"receipt_dir"`
}

// Config is the process configuration.
type Config struct {
	Port        string            `yaml:"port"`
	Storage     StorageConfig     `yaml:"storage"`
	RatesFile   string            `yaml:"rates_file"`
	Location    string            `yaml:"location"`
	Ingest      IngestConfig      `yaml:"ingest"`
	PlateLabels map[string]string `yaml:"plate_labels"`
}

// Load builds the configuration from SMOU_* environment variables and
// overlays the YAML file named by SMOU_CONFIG, when set.
func Load() (Config, error) {
	cfg := Config{
		Port: getenvDefault("SMOU_PORT", getenvDefault("PORT", "8080")),
		Storage: StorageConfig{
			Backend: getenvDefault("SMOU_BACKEND", BackendJSONL),
			LogPath: getenvDefault("SMOU_LOG_PATH", "smou_records.jsonl"),
			DBPath:  getenvDefault("SMOU_DB_PATH", "smou.db"),
		},
		RatesFile: os.Getenv("SMOU_RATES_FILE"),
		Location:  getenvDefault("SMOU_LOCATION", "Europe/Madrid"),
		Ingest: IngestConfig{
			DropPath:   os.Getenv("SMOU_DROP_PATH"),
			Format:     getenvDefault("SMOU_DROP_FORMAT", "json"),
			Schedule:   getenvDefault("SMOU_INGEST_SCHEDULE", "0 0 6 * * *"),
			ReceiptDir: os.Getenv("SMOU_RECEIPT_DIR"),
		},
		PlateLabels: plateLabelsFromEnv(),
	}

	if path := os.Getenv("SMOU_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSONL:
		if c.Storage.LogPath == "" {
			return errors.New("config: storage.log_path required for jsonl backend")
		}
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("config: storage.db_path required for sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	if _, err := c.PlateLabelMap(); err != nil {
		return err
	}
	return nil
}

// TimeLocation resolves the zone used to read the portal's timestamps.
func (c Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" || c.Location == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("config: location %q: %w", c.Location, err)
	}
	return loc, nil
}

// PlateLabelMap parses the configured default label of every plate.
func (c Config) PlateLabelMap() (map[string]domain.EnvLabel, error) {
	out := make(map[string]domain.EnvLabel, len(c.PlateLabels))
	for plate, raw := range c.PlateLabels {
		label, ok := parsing.ParseLabel(raw)
		if !ok {
			return nil, fmt.Errorf("config: plate %s: unknown environmental label %q", plate, raw)
		}
		out[strings.TrimSpace(plate)] = label
	}
	return out, nil
}

// plateLabelsFromEnv reads LICENSE_PLATE_TARIFF_1, _2, ... as PLATE;LABEL
// pairs until the first unset index. Malformed entries are skipped.
func plateLabelsFromEnv() map[string]string {
	out := map[string]string{}
	for i := 1; ; i++ {
		key := "LICENSE_PLATE_TARIFF_" + strconv.Itoa(i)
		value := os.Getenv(key)
		if value == "" {
			break
		}
		plate, label, ok := strings.Cut(value, ";")
		plate, label = strings.TrimSpace(plate), strings.TrimSpace(label)
		if !ok || plate == "" || label == "" || strings.Contains(label, ";") {
			log.Printf("[config] WARNING: invalid %s, expected PLATE;LABEL", key)
			continue
		}
		out[plate] = label
	}
	return out
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
