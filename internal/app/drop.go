package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/msanchezt/smou-parking-ha/internal/ingestion"
)

// Skip reasons returned by DropIngester.Run.
var (
	ErrDropMissing   = errors.New("drop file not present")
	ErrDropUnchanged = errors.New("drop file unchanged")
)

// DropIngester ingests the scraper's export file, skipping runs where the
// file has not changed since the last successful ingest.
type DropIngester struct {
	Path   string
	Format string
	svc    *ingestion.Service

	mu      sync.Mutex
	lastMod time.Time
}

func NewDropIngester(svc *ingestion.Service, path, format string) *DropIngester {
	return &DropIngester{Path: path, Format: format, svc: svc}
}

// Run ingests the drop file once. A missing or unchanged file is reported
// with ErrDropMissing or ErrDropUnchanged.
func (d *DropIngester) Run(ctx context.Context) (*ingestion.IngestResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := os.Stat(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrDropMissing
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", d.Path, err)
	}
	if !info.ModTime().After(d.lastMod) {
		return nil, ErrDropUnchanged
	}

	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.Path, err)
	}
	res, err := d.svc.IngestData(ctx, data, d.Format)
	if err != nil {
		return nil, err
	}
	d.lastMod = info.ModTime()
	return res, nil
}
