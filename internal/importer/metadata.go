package importer

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

// Metadata describes a file being imported.
type Metadata struct {
	Title        string
	DocumentType string
	Jurisdiction string
	Version      *string
	SourceURL    *string
	Description  *string
	DownloadDate time.Time
}

// MetadataFunc supplies metadata per file during directory imports.
type MetadataFunc func(path string) Metadata

var titleSeparators = strings.NewReplacer("_", " ", "-", " ")

// DefaultMetadata derives the title from the file name.
func DefaultMetadata(path string) Metadata {
	return Metadata{
		Title:        TitleFromFilename(path),
		DocumentType: domain.DefaultDocumentType,
		Jurisdiction: domain.DefaultJurisdiction,
	}
}

func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Join(strings.Fields(titleSeparators.Replace(stem)), " ")
}

func (m *Metadata) fill(path string) {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = TitleFromFilename(path)
	}
	if m.DocumentType == "" {
		m.DocumentType = domain.DefaultDocumentType
	}
	if m.Jurisdiction == "" {
		m.Jurisdiction = domain.DefaultJurisdiction
	}
}

func (m *Metadata) newDocument(hash, archivePath string) domain.NewDocument {
	return domain.NewDocument{
		Hash:         hash,
		Title:        m.Title,
		DocumentType: m.DocumentType,
		Jurisdiction: m.Jurisdiction,
		FilePath:     archivePath,
		Version:      m.Version,
		SourceURL:    m.SourceURL,
		Description:  m.Description,
		DownloadDate: m.DownloadDate,
	}
}
