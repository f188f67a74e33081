package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msanchezt/smou-parking-ha/internal/config"
)

const dropRows = `[
  {"ID":"1","Start date":"04/03/2024 10:00:00","End date":"04/03/2024 11:00:00",
   "Number of hours and minutes":"1h","Type of parking":"Zona blava","Cost":"3,00 €","Mail":"a@b.c",
   "license_plate":"1234ABC","pdf_error":"PDF not available"}
]`

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Storage: config.StorageConfig{
			Backend: backend,
			LogPath: filepath.Join(dir, "records.jsonl"),
			DBPath:  filepath.Join(dir, "smou.db"),
		},
		Location:    "UTC",
		PlateLabels: map[string]string{"1234ABC": "eco"},
		Ingest:      config.IngestConfig{DropPath: filepath.Join(dir, "drop.json"), Format: "json"},
	}
}

func TestOpenReloadsPersistedLog(t *testing.T) {
	for _, backend := range []string{config.BackendJSONL, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			a, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if (a.Runs != nil) != (backend == config.BackendSQLite) {
				t.Errorf("runs = %v for backend %s", a.Runs, backend)
			}
			if _, err := a.Service.IngestData(ctx, []byte(dropRows), "json"); err != nil {
				t.Fatalf("IngestData: %v", err)
			}
			a.Close()

			b, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer b.Close()
			snap := b.Service.Snapshot()
			if len(snap) != 1 || snap[0].EnvironmentalLabel != "eco" || snap[0].ReceiptStatus != "not_available" {
				t.Errorf("reloaded log = %+v", snap)
			}
		})
	}
}

func TestDropIngesterSkipsUnchangedFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendJSONL)
	a, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	d := NewDropIngester(a.Service, cfg.Ingest.DropPath, cfg.Ingest.Format)

	res, err := d.Run(ctx)
	if !errors.Is(err, ErrDropMissing) || res != nil {
		t.Fatalf("missing file: res=%v err=%v", res, err)
	}

	if err := os.WriteFile(cfg.Ingest.DropPath, []byte(dropRows), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err = d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res == nil || res.RecordsIngested != 1 {
		t.Fatalf("first run = %+v", res)
	}

	res, err = d.Run(ctx)
	if !errors.Is(err, ErrDropUnchanged) || res != nil {
		t.Errorf("unchanged file: res=%+v err=%v", res, err)
	}

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(cfg.Ingest.DropPath, later, later); err != nil {
		t.Fatal(err)
	}
	res, err = d.Run(ctx)
	if err != nil || res == nil || res.DuplicatesSkipped != 1 {
		t.Errorf("touched file: res=%+v err=%v", res, err)
	}
}
