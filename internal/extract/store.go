// Package extract turns archived source files into plain text and manages the
// one-file-per-document text directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

// TextReader yields a document's extracted text. ok is false when the
// document has none.
type TextReader interface {
	ReadText(ctx context.Context, doc *domain.Document) (text string, ok bool, err error)
}

// TextStore keeps extracted text at {dir}/{doc_id}.md.
type TextStore struct {
	dir string
}

func NewTextStore(dir string) *TextStore {
	return &TextStore{dir: dir}
}

func (s *TextStore) Dir() string {
	return s.dir
}

func (s *TextStore) Path(docID int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(docID, 10)+".md")
}

func (s *TextStore) Write(docID int64, text string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extracted dir: %w", err)
	}
	path := s.Path(docID)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write extracted text for document %d: %w", docID, err)
	}
	return path, nil
}

// ReadText prefers the path recorded on the document and falls back to the
// conventional location.
func (s *TextStore) ReadText(_ context.Context, doc *domain.Document) (string, bool, error) {
	path := s.Path(doc.ID)
	if doc.HasExtractedText() {
		path = *doc.ExtractedPath
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read extracted text for document %d: %w", doc.ID, err)
	}
	return string(b), true, nil
}
