package ingestion

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/observability/metrics"
)

// Raw-row payload formats accepted by IngestData.
const (
	FormatScraperJSON = "json"
	FormatRowsJSON    = "rows"
	FormatCSV         = "csv"
)

var (
	// ErrUnsupportedFormat is returned by IngestData for unknown formats.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrDecode wraps payloads that are not a readable raw-row export.
	ErrDecode = errors.New("decode raw rows")
)

// RecordLog is the persistence boundary of the record log.
type RecordLog interface {
	Load(ctx context.Context) ([]domain.Record, error)
	Append(ctx context.Context, records []domain.Record) error
}

// RunRecorder optionally keeps an audit trail of ingestion runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.IngestRun, rejections []domain.Rejection) error
}

// SourceChecker is implemented by run recorders that can tell whether a
// payload hash was seen by an earlier run.
type SourceChecker interface {
	RunExistsByHash(ctx context.Context, hash string) (bool, error)
}

// RecordLookup is implemented by stores that can fetch a single record.
type RecordLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Record, error)
}

// IngestResult is returned from an ingestion run.
type IngestResult struct {
	RunID             string             `json:"run_id"`
	RowsSeen          int                `json:"rows_seen"`
	RecordsIngested   int                `json:"records_ingested"`
	DuplicatesSkipped int                `json:"duplicates_skipped"`
	Rejected          []domain.Rejection `json:"rejected,omitempty"`
	TotalRecords      int                `json:"total_records"`
	// RepeatedSource is set when an earlier run ingested the same payload.
	RepeatedSource bool `json:"repeated_source,omitempty"`
}

// Service owns the in-memory record log and merges scraped batches into it.
// Readers take immutable snapshots; merges are serialized.
type Service struct {
	store RecordLog
	runs  RunRecorder
	opts  MergeOptions

	mu       sync.Mutex
	snapshot atomic.Pointer[[]domain.Record]
}

// NewService creates a new ingestion service. runs may be nil.
func NewService(store RecordLog, runs RunRecorder, opts MergeOptions) *Service {
	s := &Service{store: store, runs: runs, opts: opts}
	empty := []domain.Record{}
	s.snapshot.Store(&empty)
	return s
}

// Load reads the persisted log into memory. A missing or unreadable log
// starts the service with an empty log.
func (s *Service) Load(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		log.Printf("[ingestion] WARNING: could not load record log, starting empty: %v", err)
		records = []domain.Record{}
	}
	for i := range records {
		records[i].Normalize()
	}
	s.snapshot.Store(&records)
	metrics.SetLogSize(len(records))

	log.Printf("[ingestion] Loaded %d records", len(records))
	return len(records)
}

// Snapshot returns the current record log. The returned slice is shared and
// must not be modified.
func (s *Service) Snapshot() []domain.Record {
	return *s.snapshot.Load()
}

// IngestData decodes a raw-row payload in the given format and ingests it.
func (s *Service) IngestData(ctx context.Context, data []byte, format string) (*IngestResult, error) {
	var (
		rows []domain.RawRow
		err  error
	)
	switch format {
	case FormatScraperJSON, "":
		rows, err = ParseScraperJSON(data)
	case FormatRowsJSON:
		rows, err = ParseRowsJSON(data)
	case FormatCSV:
		rows, err = ParseRowsCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, 0)
		return nil, fmt.Errorf("%w (%s): %w", ErrDecode, format, err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	repeated := s.seenSource(ctx, hash)

	res, err := s.Ingest(ctx, rows, hash)
	if err != nil {
		return nil, err
	}
	res.RepeatedSource = repeated
	return res, nil
}

func (s *Service) seenSource(ctx context.Context, hash string) bool {
	checker, ok := s.runs.(SourceChecker)
	if !ok {
		return false
	}
	seen, err := checker.RunExistsByHash(ctx, hash)
	if err != nil {
		log.Printf("[ingestion] WARNING: could not check payload hash: %v", err)
		return false
	}
	if seen {
		log.Printf("[ingestion] Payload %s already ingested, merging again", hash[:12])
	}
	return seen
}

// Record returns the record with the given id. Stores that support direct
// lookups are queried; otherwise the current snapshot is scanned.
func (s *Service) Record(ctx context.Context, id string) (domain.Record, error) {
	if lookup, ok := s.store.(RecordLookup); ok {
		rec, err := lookup.GetByID(ctx, id)
		if err != nil {
			return domain.Record{}, err
		}
		rec.Normalize()
		return *rec, nil
	}
	for _, rec := range s.Snapshot() {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.Record{}, domain.ErrRecordNotFound
}

// Ingest merges rows into the record log, persists the new records and
// publishes the merged log to readers. When persistence fails readers keep
// seeing the previous log.
func (s *Service) Ingest(ctx context.Context, rows []domain.RawRow, sourceHash string) (*IngestResult, error) {
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := Merge(ctx, s.Snapshot(), rows, s.opts)

	for _, rej := range merged.Rejected {
		log.Printf("[ingestion] Rejected row %d (id=%q): %s", rej.Index, rej.RowID, rej.Reason)
		metrics.IncRowRejected(rej.Field)
	}

	if len(merged.Added) > 0 {
		if err := s.store.Append(ctx, merged.Added); err != nil {
			metrics.ObserveIngest(metrics.ResultError, time.Since(started))
			return nil, fmt.Errorf("append records: %w", err)
		}
		s.snapshot.Store(&merged.Log)
	}

	run := domain.IngestRun{
		ID:                uuid.NewString(),
		SourceHash:        sourceHash,
		RowsSeen:          len(rows),
		RecordsAdded:      len(merged.Added),
		DuplicatesSkipped: merged.Duplicates,
		Rejected:          len(merged.Rejected),
		IngestedAt:        time.Now(),
	}
	for i := range merged.Rejected {
		merged.Rejected[i].RunID = run.ID
	}
	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, run, merged.Rejected); err != nil {
			log.Printf("[ingestion] WARNING: failed to record run %s: %v", run.ID, err)
		}
	}

	total := len(s.Snapshot())
	metrics.AddRecords(len(merged.Added))
	metrics.SetLogSize(total)
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(started))

	log.Printf("[ingestion] Run %s: %d rows, %d new, %d duplicates, %d rejected (log now %d)",
		run.ID, len(rows), len(merged.Added), merged.Duplicates, len(merged.Rejected), total)

	return &IngestResult{
		RunID:             run.ID,
		RowsSeen:          len(rows),
		RecordsIngested:   len(merged.Added),
		DuplicatesSkipped: merged.Duplicates,
		Rejected:          merged.Rejected,
		TotalRecords:      total,
	}, nil
}
