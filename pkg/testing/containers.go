// Package testing starts disposable backing services for integration tests.
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PGImage ships the vector extension the schema depends on.
	PGImage = "pgvector/pgvector:pg17"
	ESImage = "docker.elastic.co/elasticsearch/elasticsearch:8.12.0"

	startupTimeout = 90 * time.Second
)

// Service is a running container plus the address clients dial: a libpq
// connection string for Postgres, a base URL for Elasticsearch.
type Service struct {
	Container testcontainers.Container
	Endpoint  string
}

func (s *Service) Terminate() error {
	return testcontainers.TerminateContainer(s.Container)
}

type PGConfig struct {
	Database string
	Username string
	Password string
}

func (c PGConfig) withDefaults() PGConfig {
	if c.Database == "" {
		c.Database = "regkb_test"
	}
	if c.Username == "" {
		c.Username = "regkb"
	}
	if c.Password == "" {
		c.Password = "regkb"
	}
	return c
}

// StartPostgres runs an empty database; callers apply the embedded migrations.
func StartPostgres(ctx context.Context, cfg PGConfig) (*Service, error) {
	cfg = cfg.withDefaults()
	c, err := postgres.Run(ctx,
		PGImage,
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("failed to build postgres dsn: %w", err)
	}
	return &Service{Container: c, Endpoint: dsn}, nil
}

// StartElasticsearch runs a single node with security disabled and stops it
// when the test finishes.
func StartElasticsearch(ctx context.Context, tb testing.TB) *Service {
	tb.Helper()

	c, err := elasticsearch.Run(ctx,
		ESImage,
		elasticsearch.WithPassword(""),
		testcontainers.WithEnv(map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/").
				WithPort("9200").
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start elasticsearch: %v", err)
	}
	svc := &Service{Container: c}
	tb.Cleanup(func() {
		if err := svc.Terminate(); err != nil {
			tb.Logf("failed to stop elasticsearch: %v", err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		tb.Fatalf("failed to resolve elasticsearch host: %v", err)
	}
	port, err := c.MappedPort(ctx, "9200")
	if err != nil {
		tb.Fatalf("failed to resolve elasticsearch port: %v", err)
	}
	svc.Endpoint = fmt.Sprintf("http://%s:%s", host, port.Port())
	return svc
}
