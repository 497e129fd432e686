package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

// DefaultPatterns match every format the extractor chain understands.
var DefaultPatterns = []string{"**/*.{pdf,PDF,html,htm,md,markdown,txt}"}

type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type BatchResult struct {
	BatchID      int64       `json:"batch_id,omitempty"`
	TotalFiles   int         `json:"total_files"`
	Imported     int         `json:"imported"`
	Duplicates   int         `json:"duplicates"`
	Errors       int         `json:"errors"`
	ErrorDetails []FileError `json:"error_details,omitempty"`
	Outcomes     []*Outcome  `json:"-"`
}

func (r *BatchResult) String() string {
	return fmt.Sprintf("Import complete: %d imported, %d duplicates skipped, %d errors", r.Imported, r.Duplicates, r.Errors)
}

// Scan lists regular files under dir matching any of the patterns, sorted.
func Scan(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]struct{})
	var files []string
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to glob %q in %s: %w", p, dir, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ImportDirectory imports every matching file under dir and records the run
// as an import batch. Per-file failures are counted, not returned.
func (im *Importer) ImportDirectory(ctx context.Context, dir string, patterns []string, metaFn MetadataFunc) (*BatchResult, error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, fs.ErrInvalid)
	}

	files, err := Scan(dir, patterns)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{TotalFiles: len(files)}
	if len(files) == 0 {
		slog.Info("No files found", "dir", dir, "patterns", patterns)
		return result, nil
	}

	batch := domain.ImportBatch{SourcePath: dir, StartedAt: im.now(), Status: domain.BatchInProgress}
	batch.ID, err = im.store.StartBatch(ctx, dir, batch.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start import batch: %w", err)
	}
	result.BatchID = batch.ID

	slog.Info("Importing directory", "dir", dir, "files", len(files), "batch_id", batch.ID)

	batch.Status = domain.BatchCompleted
	for _, f := range files {
		if ctx.Err() != nil {
			batch.Status = domain.BatchFailed
			break
		}

		var meta *Metadata
		if metaFn != nil {
			m := metaFn(f)
			meta = &m
		}

		item := domain.ImportBatchItem{BatchID: batch.ID, FilePath: f}
		out, err := im.ImportFile(ctx, f, meta)
		switch {
		case err != nil:
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails, FileError{File: f, Error: err.Error()})
			item.Status = domain.ItemError
			item.ErrorMessage = err.Error()
			slog.Error("Failed to import file", "file", f, "error", err)
		case out.Duplicate:
			result.Duplicates++
			item.Status = domain.ItemDuplicate
			item.DocumentID = &out.DocumentID
		default:
			result.Imported++
			item.Status = domain.ItemImported
			item.DocumentID = &out.DocumentID
		}
		if out != nil {
			result.Outcomes = append(result.Outcomes, out)
		}

		if err := im.store.RecordBatchItem(ctx, item); err != nil {
			slog.Warn("Failed to record batch item", "batch_id", batch.ID, "file", f, "error", err)
		}
	}

	completed := im.now()
	batch.CompletedAt = &completed
	batch.TotalFiles = result.TotalFiles
	batch.Imported = result.Imported
	batch.Duplicates = result.Duplicates
	batch.Errors = result.Errors
	if err := im.store.FinishBatch(context.WithoutCancel(ctx), batch); err != nil {
		return result, fmt.Errorf("failed to finish import batch %d: %w", batch.ID, err)
	}

	slog.Info(result.String(), "batch_id", batch.ID)
	return result, ctx.Err()
}
