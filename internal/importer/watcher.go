package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	processedDir    = "processed"
	failedDir       = "failed"
)

type WatchConfig struct {
	Dir        string
	Debounce   time.Duration
	Extensions []string
	Metadata   MetadataFunc
}

// Watcher imports files dropped into an inbox directory. Imported and
// duplicate files move to {dir}/processed, failures to {dir}/failed.
type Watcher struct {
	importer   *Importer
	cfg        WatchConfig
	extensions map[string]bool

	mu      sync.Mutex
	pending map[string]time.Time

	// OnImport is called after every processed file; used by tests and the CLI.
	OnImport func(path string, out *Outcome, err error)
}

func NewWatcher(im *Importer, cfg WatchConfig) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".pdf", ".html", ".htm", ".md", ".markdown", ".txt"}
	}
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = true
	}
	return &Watcher{
		importer:   im,
		cfg:        cfg,
		extensions: exts,
		pending:    make(map[string]time.Time),
	}
}

// Run imports files already waiting in the inbox, then watches it until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.cfg.Dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}

	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox %s: %w", w.cfg.Dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.enqueue(filepath.Join(w.cfg.Dir, e.Name()))
		}
	}

	slog.Info("Watching inbox", "dir", w.cfg.Dir, "debounce", w.cfg.Debounce)

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.enqueue(ev.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) enqueue(path string) {
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// flush imports files that have been quiet for the debounce delay.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	var meta *Metadata
	if w.cfg.Metadata != nil {
		m := w.cfg.Metadata(path)
		meta = &m
	}

	out, err := w.importer.ImportFile(ctx, path, meta)
	dest := processedDir
	if err != nil {
		dest = failedDir
		slog.Error("Failed to import inbox file", "file", path, "error", err)
	} else {
		slog.Info("Imported inbox file", "file", filepath.Base(path), "id", out.DocumentID, "duplicate", out.Duplicate)
	}

	if moved, mvErr := moveInto(filepath.Join(w.cfg.Dir, dest), path); mvErr != nil {
		slog.Error("Failed to move inbox file", "file", path, "error", mvErr)
	} else {
		slog.Debug("Moved inbox file", "to", moved)
	}

	if w.OnImport != nil {
		w.OnImport(path, out, err)
	}
}

// moveInto moves path into dir, prefixing a timestamp when the name is taken.
func moveInto(dir, path string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(dir, time.Now().Format("20060102_150405.000")+"_"+filepath.Base(path))
	}
	return dst, os.Rename(path, dst)
}
