package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/regkb/pkg/utils"
)

// applyEnv overrides file values with any environment variable that is set.
func applyEnv(c *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = utils.SplitList(v, ",")
		}
	}

	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("STORAGE_TYPE", &c.Storage.Type)
	str("PG_CONNECTION_STRING", &c.Storage.ConnStr)

	str("SEARCH_BACKEND", &c.Search.Backend)
	str("SEARCH_FTS_CONFIG", &c.Search.FTSConfig)
	list("ES_ADDRESSES", &c.Search.ES.Addresses)
	str("ES_INDEX_NAME", &c.Search.ES.IndexName)
	str("ES_USERNAME", &c.Search.ES.Username)
	str("ES_PASSWORD", &c.Search.ES.Password)
	str("EMBEDDING_MODEL", &c.Search.Embedding.Model)
	str("OLLAMA_BASE_URL", &c.Search.Embedding.BaseURL)

	str("PORT", &c.Server.Port)
	list("CORS_ORIGINS", &c.Server.CorsOrigins)

	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &c.NATS.SubjectPrefix)

	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_REGION", &c.S3.Region)
	str("S3_PREFIX", &c.S3.Prefix)
	str("S3_ENDPOINT", &c.S3.Endpoint)

	if err := boolEnv("EMBEDDING_ENABLED", &c.Search.Embedding.Enabled); err != nil {
		return err
	}
	if err := boolEnv("USE_HTTP2", &c.Server.UseHTTP2); err != nil {
		return err
	}
	if err := boolEnv("EXTRACT_TEXT", &c.Import.ExtractText); err != nil {
		return err
	}
	if err := durationEnv("EMBEDDING_TIMEOUT", &c.Search.Embedding.Timeout); err != nil {
		return err
	}
	if err := intEnv("DIFF_CONTEXT_LINES", &c.Versioning.ContextLines); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("MIN_SIMILARITY"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid MIN_SIMILARITY %q: %w", v, err)
		}
		c.Versioning.MinSimilarity = f
	}
	if v, ok := os.LookupEnv("PG_MAX_CONNS"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PG_MAX_CONNS %q: %w", v, err)
		}
		c.Storage.MaxConns = int32(n)
	}
	return nil
}

func boolEnv(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func intEnv(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func durationEnv(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
