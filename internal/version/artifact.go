package version

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/identifier"
)

const maxArtifactSuffix = 100

var safeName = strings.NewReplacer(" ", "_", "/", "-")

// ArtifactName is diff_{identifier}_{old}_vs_{new}_{YYYYMMDD_HHMMSS}.html.
func ArtifactName(id identifier.Identifier, oldID, newID int64, at time.Time) string {
	return fmt.Sprintf("diff_%s_%d_vs_%d_%s.html", safeName.Replace(string(id)), oldID, newID, at.Format("20060102_150405"))
}

// writeArtifact never overwrites: an existing name gets a numeric suffix.
func writeArtifact(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create diffs dir: %w", err)
	}

	base := strings.TrimSuffix(name, ".html")
	for i := 0; i < maxArtifactSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d.html", base, i)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create diff artifact: %w", err)
		}
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write diff artifact %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close diff artifact %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to find a free name for diff artifact %s", name)
}

// discardArtifact removes a diff page that no result will reference.
func discardArtifact(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove orphaned diff artifact", "path", path, "error", err)
	}
}
