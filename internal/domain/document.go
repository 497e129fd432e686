package domain

import (
	"time"
)

const (
	DefaultDocumentType = "other"
	DefaultJurisdiction = "Other"
)

// Document is a single stored version of a regulatory document.
type Document struct {
	ID            int64     `json:"id"`
	Hash          string    `json:"hash"`
	Title         string    `json:"title"`
	DocumentType  string    `json:"document_type"`
	Jurisdiction  string    `json:"jurisdiction"`
	Version       *string   `json:"version,omitempty"`
	IsLatest      bool      `json:"is_latest"`
	SourceURL     *string   `json:"source_url,omitempty"`
	FilePath      string    `json:"file_path"`
	ExtractedPath *string   `json:"extracted_path,omitempty"`
	Description   *string   `json:"description,omitempty"`
	DownloadDate  time.Time `json:"download_date"`
	ImportDate    time.Time `json:"import_date"`
	SupersededBy  *int64    `json:"superseded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (d *Document) HasExtractedText() bool {
	return d.ExtractedPath != nil && *d.ExtractedPath != ""
}

func (d *Document) DescriptionOrEmpty() string {
	if d.Description == nil {
		return ""
	}
	return *d.Description
}

// NewDocument carries the fields accepted when a document row is created.
// IsLatest is always true for a fresh row; supersession is applied afterwards.
type NewDocument struct {
	Hash         string
	Title        string
	DocumentType string
	Jurisdiction string
	FilePath     string
	Version      *string
	SourceURL    *string
	Description  *string
	DownloadDate time.Time
}

func (n *NewDocument) ApplyDefaults(now time.Time) {
	if n.DocumentType == "" {
		n.DocumentType = DefaultDocumentType
	}
	if n.Jurisdiction == "" {
		n.Jurisdiction = DefaultJurisdiction
	}
	if n.DownloadDate.IsZero() {
		n.DownloadDate = now
	}
}

// ListFilter selects documents for listing. Zero values mean "no filter".
type ListFilter struct {
	DocumentType string
	Jurisdiction string
	LatestOnly   bool
	Limit        int
	Offset       int
}

func (f ListFilter) Matches(d *Document) bool {
	if f.DocumentType != "" && d.DocumentType != f.DocumentType {
		return false
	}
	if f.Jurisdiction != "" && d.Jurisdiction != f.Jurisdiction {
		return false
	}
	if f.LatestOnly && !d.IsLatest {
		return false
	}
	return true
}

// Stats aggregates the document collection.
type Stats struct {
	TotalDocuments int64            `json:"total_documents"`
	ByType         map[string]int64 `json:"by_type"`
	ByJurisdiction map[string]int64 `json:"by_jurisdiction"`
	LatestVersions int64            `json:"latest_versions"`
	TotalImports   int64            `json:"total_imports"`
	PendingReviews int64            `json:"pending_reviews"`
}
