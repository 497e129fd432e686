package domain

import "time"

type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

type ItemStatus string

const (
	ItemImported  ItemStatus = "imported"
	ItemDuplicate ItemStatus = "duplicate"
	ItemError     ItemStatus = "error"
)

// ImportBatch is the audit record of one directory import.
type ImportBatch struct {
	ID          int64       `json:"id"`
	SourcePath  string      `json:"source_path"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	TotalFiles  int         `json:"total_files"`
	Imported    int         `json:"imported"`
	Duplicates  int         `json:"duplicates"`
	Errors      int         `json:"errors"`
	Status      BatchStatus `json:"status"`
}

type ImportBatchItem struct {
	BatchID      int64      `json:"batch_id"`
	FilePath     string     `json:"file_path"`
	DocumentID   *int64     `json:"document_id,omitempty"`
	Status       ItemStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}
