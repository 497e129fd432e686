// Package validator checks that a document's extracted text plausibly matches its title.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
)

const (
	maxExpectedTerms = 5
	prefixChars      = 2000
)

var (
	acronymRe      = regexp.MustCompile(`(?i)\b(mdr|ivdr|mdcg|cfr|iso|iec|imdrf|samd)\b`)
	euNumberRe     = regexp.MustCompile(`\b\d{4}/\d{2,4}\b`)
	standardNumRe  = regexp.MustCompile(`\b\d{4,5}\b`)
	mdcgNumberRe   = regexp.MustCompile(`\b\d{4}-\d{1,3}\b`)
	jurisdictionRe = regexp.MustCompile(`(?i)\b(fda|eu|european|uk)\b`)
)

// Warning is an advisory finding; it never blocks an import.
type Warning struct {
	Message       string   `json:"message"`
	ExpectedTerms []string `json:"expected_terms"`
}

func (w *Warning) String() string {
	return w.Message
}

type Validator struct {
	texts extract.TextReader
}

func New(texts extract.TextReader) *Validator {
	return &Validator{texts: texts}
}

// Validate returns nil when the title yields no terms, the document has no
// text, or any expected term appears near the start of the text.
func (v *Validator) Validate(ctx context.Context, doc *domain.Document) *Warning {
	terms := ExpectedTerms(doc.Title)
	if len(terms) == 0 {
		return nil
	}

	text, ok, err := v.texts.ReadText(ctx, doc)
	if err != nil {
		slog.Warn("Skipping content validation", "id", doc.ID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	head := strings.ToLower(prefix(text, prefixChars))
	for _, term := range terms {
		if strings.Contains(head, term) {
			return nil
		}
	}

	return &Warning{
		Message: fmt.Sprintf(
			"Content may not match title: none of the expected terms (%s) were found in the first %d characters of the extracted text. Please verify the document manually.",
			strings.Join(terms, ", "), prefixChars),
		ExpectedTerms: terms,
	}
}

// ExpectedTerms pulls acronyms, reference numbers, and jurisdiction tokens out
// of a title, lowercased and deduplicated in first-seen order.
func ExpectedTerms(title string) []string {
	var terms []string
	seen := make(map[string]struct{})
	add := func(t string) {
		t = strings.ToLower(t)
		if _, ok := seen[t]; ok || len(terms) >= maxExpectedTerms {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	for _, m := range acronymRe.FindAllString(title, -1) {
		add(m)
	}
	for _, m := range euNumberRe.FindAllString(title, -1) {
		add(m)
	}
	for _, m := range standardNumRe.FindAllString(title, -1) {
		if !isYear(m) {
			add(m)
		}
	}
	for _, m := range mdcgNumberRe.FindAllString(title, -1) {
		add(m)
	}
	for _, m := range jurisdictionRe.FindAllString(title, -1) {
		add(m)
	}
	return terms
}

func isYear(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1990 && n <= 2030
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
