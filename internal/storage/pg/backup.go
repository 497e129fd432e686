package pg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
)

var backupTables = []string{
	"documents",
	"import_batches",
	"import_batch_items",
	"version_reviews",
	"document_embeddings",
}

// Backup copies every table to CSV inside one read-only snapshot so the files
// are mutually consistent.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	out := filepath.Join(dir, "regkb_backup_"+s.now().Format("20060102_150405"))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return "", fmt.Errorf("failed to begin backup transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, table := range backupTables {
		if err := copyTable(ctx, tx, table, filepath.Join(out, table+".csv")); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to finish backup transaction: %w", err)
	}

	slog.Info("Backup written", "path", out, "tables", len(backupTables))
	return out, nil
}

func copyTable(ctx context.Context, tx pgx.Tx, table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	sql := fmt.Sprintf("COPY %s TO STDOUT (FORMAT csv, HEADER)", pgx.Identifier{table}.Sanitize())
	if _, err := tx.Conn().PgConn().CopyTo(ctx, f, sql); err != nil {
		return fmt.Errorf("failed to copy table %s: %w", table, err)
	}
	return f.Sync()
}
