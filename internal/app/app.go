// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/msanchezt/smou-parking-ha/internal/config"
	"github.com/msanchezt/smou-parking-ha/internal/ingestion"
	"github.com/msanchezt/smou-parking-ha/internal/receipt"
	"github.com/msanchezt/smou-parking-ha/internal/repository"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config  config.Config
	Service *ingestion.Service
	Rates   *tariff.RateTable
	// Runs is nil unless the SQLite backend is used.
	Runs *repository.RunRepo

	db *sql.DB
}

// Open builds the storage backend and the ingestion service, then loads the
// persisted record log.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	rates, err := cfg.RateTable()
	if err != nil {
		return nil, fmt.Errorf("rate table: %w", err)
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	plates, err := cfg.PlateLabelMap()
	if err != nil {
		return nil, err
	}

	opts := ingestion.MergeOptions{Location: loc, PlateLabels: plates}
	if cfg.Ingest.ReceiptDir != "" {
		opts.Receipts = receipt.DirSource{Dir: cfg.Ingest.ReceiptDir}
	}

	a := &App{Config: cfg, Rates: rates}

	var (
		store ingestion.RecordLog
		runs  ingestion.RunRecorder
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		log.Printf("[app] Initializing database at %s", cfg.Storage.DBPath)
		db, err := repository.InitDB(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		a.db = db
		records := repository.NewRecordRepo(db)
		if n, err := records.Count(ctx); err != nil {
			log.Printf("[app] WARNING: could not count stored records: %v", err)
		} else {
			log.Printf("[app] Database holds %d records", n)
		}
		a.Runs = repository.NewRunRepo(db)
		store, runs = records, a.Runs
	default:
		log.Printf("[app] Using record log %s", cfg.Storage.LogPath)
		store = repository.NewFileLog(cfg.Storage.LogPath)
	}

	a.Service = ingestion.NewService(store, runs, opts)
	a.Service.Load(ctx)
	return a, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
