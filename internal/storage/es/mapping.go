package es

import (
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

const textAnalyzer = "regulatory_analyzer"

type indexDocument struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	DocumentType string    `json:"document_type"`
	Jurisdiction string    `json:"jurisdiction"`
	IsLatest     bool      `json:"is_latest"`
	ImportDate   time.Time `json:"import_date"`
	IndexedAt    time.Time `json:"indexed_at"`
}

func toIndexDocument(d storage.IndexedDocument, now time.Time) indexDocument {
	return indexDocument{
		ID:           strconv.FormatInt(d.Document.ID, 10),
		Title:        d.Document.Title,
		Description:  d.Document.DescriptionOrEmpty(),
		Content:      d.Text,
		DocumentType: d.Document.DocumentType,
		Jurisdiction: d.Document.Jurisdiction,
		IsLatest:     d.Document.IsLatest,
		ImportDate:   d.Document.ImportDate,
		IndexedAt:    now,
	}
}

func buildSettings() types.IndexSettings {
	english := "_english_"
	return types.IndexSettings{
		Analysis: &types.IndexSettingsAnalysis{
			Analyzer: map[string]types.Analyzer{
				textAnalyzer: types.StandardAnalyzer{
					Stopwords: []string{english},
				},
			},
		},
	}
}

func buildMapping() types.TypeMapping {
	return types.TypeMapping{
		Properties: map[string]types.Property{
			"id":            types.NewKeywordProperty(),
			"title":         textProperty(true),
			"description":   textProperty(false),
			"content":       textProperty(false),
			"document_type": types.NewKeywordProperty(),
			"jurisdiction":  types.NewKeywordProperty(),
			"is_latest":     types.NewBooleanProperty(),
			"import_date":   types.NewDateProperty(),
			"indexed_at":    types.NewDateProperty(),
		},
	}
}

func textProperty(withKeyword bool) types.Property {
	p := types.NewTextProperty()
	analyzer := textAnalyzer
	p.Analyzer = &analyzer
	if withKeyword {
		p.Fields = map[string]types.Property{
			"keyword": types.NewKeywordProperty(),
		}
	}
	return p
}
