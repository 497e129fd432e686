package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
)

// Validate reports every problem at once as a ValidationError.
func (c *Config) Validate() error {
	var errs []error

	if err := validatePort(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port: %w", err))
	}
	if c.Versioning.MinSimilarity < 0 || c.Versioning.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("versioning.min_similarity must be within [0, 1], got %v", c.Versioning.MinSimilarity))
	}
	if c.Versioning.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("versioning.context_lines must not be negative, got %d", c.Versioning.ContextLines))
	}

	switch c.Storage.Type {
	case "pg":
		if c.Storage.ConnStr == "" {
			errs = append(errs, errors.New("PG_CONNECTION_STRING is required for pg storage"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("invalid storage type %q, expected one of [pg memory]", c.Storage.Type))
	}

	switch c.Search.Backend {
	case SearchBackendStore:
	case SearchBackendES:
		if len(c.Search.ES.Addresses) == 0 || c.Search.ES.IndexName == "" {
			errs = append(errs, errors.New("elasticsearch configuration is incomplete: addresses or index name is missing"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid search backend %q, expected one of [store es]", c.Search.Backend))
	}
	if c.Search.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit))
	}

	if len(c.DocumentTypes) == 0 {
		errs = append(errs, errors.New("document_types must not be empty"))
	}
	if len(c.Jurisdictions) == 0 {
		errs = append(errs, errors.New("jurisdictions must not be empty"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q, expected text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return apperr.NewValidationWrap("invalid configuration", errors.Join(errs...))
	}
	return nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)

	if err != nil {
		return errors.New("port must be a number")
	}

	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
