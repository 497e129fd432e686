// Package factory wires the configured document store and optional
// Elasticsearch lexical index.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/storage/es"
	"github.com/DjordjeVuckovic/regkb/internal/storage/memory"
	"github.com/DjordjeVuckovic/regkb/internal/storage/pg"
	"github.com/DjordjeVuckovic/regkb/pkg/server"
)

type Config struct {
	Type      storage.Type
	PG        pg.PoolConfig
	FTSConfig string
	// ES enables the Elasticsearch lexical ranker when set.
	ES *es.ClientConfig
}

// Backends groups everything built from storage configuration. Lexical is
// the store itself unless an Elasticsearch index is configured, in which
// case Indexer is that index too.
type Backends struct {
	Store   storage.DocumentStore
	Vectors storage.VectorIndex
	Lexical storage.LexicalSearcher
	Indexer storage.TextIndexer
	Health  []server.HealthChecker
}

func New(ctx context.Context, cfg Config) (*Backends, error) {
	b := &Backends{}

	switch cfg.Type {
	case storage.PG:
		pool, err := pg.NewConnectionPool(ctx, cfg.PG)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		s := pg.NewStore(pool, pg.StoreConfig{FTSConfig: cfg.FTSConfig})
		b.Store, b.Vectors = s, s
		b.Health = append(b.Health, pool)

	case storage.InMem:
		s := memory.New()
		b.Store, b.Vectors = s, s
		b.Health = append(b.Health, server.NewOkHealthChecker("memory"))

	default:
		return nil, fmt.Errorf(
			"unsupported storage type %q, expected one of %v",
			cfg.Type, []storage.Type{storage.PG, storage.InMem})
	}
	b.Lexical = b.Store

	if cfg.ES != nil {
		idx, err := es.NewIndex(ctx, *cfg.ES, b.Store)
		if err != nil {
			b.Store.Close()
			return nil, err
		}
		b.Lexical, b.Indexer = idx, idx
		b.Health = append(b.Health, idx)
		slog.Info("Elasticsearch lexical ranker enabled", "index", cfg.ES.IndexName)
	}

	slog.Info("Storage ready", "type", cfg.Type)
	return b, nil
}

func (b *Backends) Close() {
	if b.Store != nil {
		b.Store.Close()
	}
}
