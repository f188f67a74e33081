package domain

import "time"

// IngestRun describes one merge of a raw-row batch into the record log.
type IngestRun struct {
	ID                string    `json:"id"`
	SourceHash        string    `json:"source_hash,omitempty"`
	RowsSeen          int       `json:"rows_seen"`
	RecordsAdded      int       `json:"records_added"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	Rejected          int       `json:"rejected"`
	IngestedAt        time.Time `json:"ingested_at"`
}

// Rejection reports a raw row that was dropped during a merge.
type Rejection struct {
	RunID  string `json:"run_id,omitempty"`
	Index  int    `json:"index"`
	RowID  string `json:"row_id,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}
