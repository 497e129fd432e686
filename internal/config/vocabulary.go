package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

const closeMatchCutoff = 0.6

// NormalizeDocumentType returns the configured spelling, or "other".
func (c *Config) NormalizeDocumentType(s string) string {
	if v, ok := lookup(c.DocumentTypes, s); ok {
		return v
	}
	return domain.DefaultDocumentType
}

// NormalizeJurisdiction returns the configured spelling, or "Other".
func (c *Config) NormalizeJurisdiction(s string) string {
	if v, ok := lookup(c.Jurisdictions, s); ok {
		return v
	}
	return domain.DefaultJurisdiction
}

func (c *Config) ValidateDocumentType(s string) error {
	return validateTerm("document type", "types", s, c.DocumentTypes)
}

func (c *Config) ValidateJurisdiction(s string) error {
	return validateTerm("jurisdiction", "jurisdictions", s, c.Jurisdictions)
}

func lookup(valid []string, s string) (string, bool) {
	for _, v := range valid {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

func validateTerm(kind, plural, s string, valid []string) error {
	if s == "" {
		return apperr.NewValidation(fmt.Sprintf("%s cannot be empty", capitalize(kind)))
	}
	if _, ok := lookup(valid, s); ok {
		return nil
	}

	lowered := make([]string, len(valid))
	spelling := make(map[string]string, len(valid))
	for i, v := range valid {
		lowered[i] = strings.ToLower(v)
		spelling[lowered[i]] = v
	}
	list := strings.Join(valid, ", ")
	if m := CloseMatches(strings.ToLower(s), lowered, 1, closeMatchCutoff); len(m) > 0 {
		return apperr.NewValidation(fmt.Sprintf("Invalid %s '%s'. Did you mean '%s'? Valid %s: %s", kind, s, spelling[m[0]], plural, list))
	}
	return apperr.NewValidation(fmt.Sprintf("Invalid %s '%s'. Valid %s: %s", kind, s, plural, list))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CloseMatches returns up to n candidates whose character similarity ratio
// to word is at least cutoff, best first.
func CloseMatches(word string, candidates []string, n int, cutoff float64) []string {
	type scored struct {
		s     string
		ratio float64
	}

	target := strings.Split(word, "")
	var hits []scored
	for _, c := range candidates {
		m := difflib.NewMatcher(strings.Split(c, ""), target)
		if r := m.Ratio(); r >= cutoff {
			hits = append(hits, scored{s: c, ratio: r})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].ratio != hits[j].ratio {
			return hits[i].ratio > hits[j].ratio
		}
		return hits[i].s > hits[j].s
	})
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.s
	}
	return out
}
