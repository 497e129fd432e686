package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

const uniqueViolation = "23505"

const documentColumns = `id, hash, title, document_type, jurisdiction, version, is_latest, source_url,
	file_path, extracted_path, description, download_date, import_date, superseded_by, created_at, updated_at`

type StoreConfig struct {
	// FTSConfig is the text search configuration used for queries.
	FTSConfig string
}

type Store struct {
	pool *ConnectionPool
	db   *pgxpool.Pool
	fts  string
	now  func() time.Time
}

var (
	_ storage.DocumentStore = (*Store)(nil)
	_ storage.VectorIndex   = (*Store)(nil)
)

func NewStore(pool *ConnectionPool, cfg StoreConfig) *Store {
	fts := cfg.FTSConfig
	if fts == "" {
		fts = "english"
	}
	return &Store{pool: pool, db: pool.DB(), fts: fts, now: time.Now}
}

func (s *Store) Close() {
	s.pool.Close()
}

func scanDocument(row pgx.Row, extra ...any) (*domain.Document, error) {
	var d domain.Document
	dest := []any{
		&d.ID, &d.Hash, &d.Title, &d.DocumentType, &d.Jurisdiction, &d.Version, &d.IsLatest, &d.SourceURL,
		&d.FilePath, &d.ExtractedPath, &d.Description, &d.DownloadDate, &d.ImportDate, &d.SupersededBy,
		&d.CreatedAt, &d.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) getOne(ctx context.Context, q pgx.Row) (*domain.Document, error) {
	d, err := scanDocument(q)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return d, nil
}

func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document hash: %w", err)
	}
	return exists, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.getOne(ctx, s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (s *Store) GetByHash(ctx context.Context, hash string) (*domain.Document, error) {
	return s.getOne(ctx, s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE hash = $1`, hash))
}

func (s *Store) Add(ctx context.Context, nd domain.NewDocument) (int64, error) {
	now := s.now()
	nd.ApplyDefaults(now)

	var id int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO documents (hash, title, document_type, jurisdiction, version, is_latest, source_url,
			                       file_path, description, download_date, import_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $10, $10, $10)
			RETURNING id`,
			nd.Hash, nd.Title, nd.DocumentType, nd.Jurisdiction, nd.Version, nd.SourceURL,
			nd.FilePath, nd.Description, nd.DownloadDate, now,
		).Scan(&id)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		where = append(where, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if filter.Jurisdiction != "" {
		args = append(args, filter.Jurisdiction)
		where = append(where, fmt.Sprintf("jurisdiction = $%d", len(args)))
	}
	if filter.LatestOnly {
		where = append(where, "is_latest")
	}

	q := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY import_date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryDocuments(ctx, q, args...)
}

func (s *Store) ListLatest(ctx context.Context, excludeID int64) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE is_latest AND id <> $1
		ORDER BY import_date DESC, id DESC`, excludeID)
}

func (s *Store) queryDocuments(ctx context.Context, q string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return docs, nil
}

func (s *Store) Update(ctx context.Context, id int64, fields domain.Fields) (bool, error) {
	valid, err := fields.Validate()
	if err != nil {
		return false, storage.UpdateError(err)
	}

	var (
		sets []string
		args []any
	)
	for _, name := range valid.Names() {
		args = append(args, valid[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	args = append(args, s.now(), id)
	q := fmt.Sprintf(`UPDATE documents SET %s, updated_at = $%d WHERE id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	found := false
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var (
			current *int64
			latest  bool
		)
		err := tx.QueryRow(ctx, `SELECT superseded_by, is_latest FROM documents WHERE id = $1 FOR UPDATE`, id).
			Scan(&current, &latest)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		next := current
		if v, ok := valid[domain.FieldSupersededBy]; ok {
			to := v.(int64)
			if err := storage.CheckSupersession(current, &to); err != nil {
				return err
			}
			next = &to
		}
		if v, ok := valid[domain.FieldIsLatest]; ok {
			latest = v.(bool)
		}
		if err := storage.CheckLatest(next, latest); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, q, args...)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrSupersessionImmutable) || errors.Is(err, storage.ErrSupersededLatest) {
			return false, err
		}
		return false, fmt.Errorf("failed to update document %d: %w", id, err)
	}
	return found, nil
}

// Supersede locks both rows so a concurrent resolution cannot rewrite or
// reverse the link.
func (s *Store) Supersede(ctx context.Context, oldID, newID int64) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return s.supersedeTx(ctx, tx, oldID, newID)
	})
	if err != nil {
		return fmt.Errorf("failed to supersede document %d with %d: %w", oldID, newID, err)
	}
	return nil
}

func (s *Store) supersedeTx(ctx context.Context, tx pgx.Tx, oldID, newID int64) error {
	rows, err := tx.Query(ctx, `
		SELECT id, superseded_by FROM documents WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		[]int64{oldID, newID})
	if err != nil {
		return err
	}
	links := make(map[int64]*int64, 2)
	for rows.Next() {
		var (
			id   int64
			link *int64
		)
		if err := rows.Scan(&id, &link); err != nil {
			rows.Close()
			return err
		}
		links[id] = link
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	oldLink, ok := links[oldID]
	if !ok {
		return storage.ErrNotFound
	}
	newLink, ok := links[newID]
	if !ok {
		return storage.ErrNotFound
	}
	if err := storage.CheckLink(oldID, newID, oldLink, newLink); err != nil {
		return err
	}

	now := s.now()
	if _, err := tx.Exec(ctx, `
		UPDATE documents SET is_latest = FALSE, superseded_by = $1, updated_at = $2 WHERE id = $3`,
		newID, now, oldID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE documents SET is_latest = TRUE, updated_at = $1 WHERE id = $2`, now, newID)
	return err
}

func (s *Store) AttachText(ctx context.Context, id int64, path, text string) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE documents SET extracted_path = $1, content = $2, updated_at = $3 WHERE id = $4`,
			path, text, s.now(), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to attach text to document %d: %w", id, err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	st := &domain.Stats{
		ByType:         make(map[string]int64),
		ByJurisdiction: make(map[string]int64),
	}

	err := s.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM documents),
		       (SELECT COUNT(*) FROM documents WHERE is_latest),
		       (SELECT COUNT(*) FROM import_batches),
		       (SELECT COUNT(*) FROM version_reviews WHERE status = 'pending')`,
	).Scan(&st.TotalDocuments, &st.LatestVersions, &st.TotalImports, &st.PendingReviews)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	for _, group := range []struct {
		column string
		into   map[string]int64
	}{
		{"document_type", st.ByType},
		{"jurisdiction", st.ByJurisdiction},
	} {
		rows, err := s.db.Query(ctx, `SELECT `+group.column+`, COUNT(*) FROM documents GROUP BY 1`)
		if err != nil {
			return nil, fmt.Errorf("failed to group documents by %s: %w", group.column, err)
		}
		for rows.Next() {
			var key string
			var n int64
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s counts: %w", group.column, err)
			}
			group.into[key] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating %s counts: %w", group.column, err)
		}
	}
	return st, nil
}

func prefixed(alias string) string {
	cols := strings.Split(documentColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
