package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

type fakeTexts struct {
	text string
	ok   bool
	err  error
}

func (f fakeTexts) ReadText(context.Context, *domain.Document) (string, bool, error) {
	return f.text, f.ok, f.err
}

func TestExpectedTerms(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"MDCG 2019-11 Guidance on Qualification", []string{"mdcg", "2019-11"}},
		{"ISO 13485:2016 Quality Management Systems", []string{"iso", "13485"}},
		{"Regulation (EU) 2017/745 MDR", []string{"mdr", "2017/745", "eu"}},
		{"FDA Cybersecurity in Medical Devices", []string{"fda"}},
		{"Blue Guide 2022", nil},
		{"IEC 62304 ISO 14971 IMDRF SaMD UK FDA", []string{"iec", "iso", "imdrf", "samd", "62304"}},
		{"iso ISO Iso 14971", []string{"iso", "14971"}},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedTerms(tt.title))
		})
	}
}

func TestValidate(t *testing.T) {
	doc := &domain.Document{ID: 1, Title: "MDCG 2019-11 Software qualification"}

	tests := []struct {
		name  string
		doc   *domain.Document
		texts fakeTexts
		warn  bool
	}{
		{"term present", doc, fakeTexts{text: "This MDCG document...", ok: true}, false},
		{"term present case insensitive", doc, fakeTexts{text: "guidance 2019-11 on software", ok: true}, false},
		{"no text", doc, fakeTexts{}, false},
		{"read error is advisory", doc, fakeTexts{err: errors.New("disk")}, false},
		{"no terms in title", &domain.Document{Title: "Blue Guide 2022"}, fakeTexts{text: "x", ok: true}, false},
		{"mismatched content", doc, fakeTexts{text: "A cookbook of pasta recipes.", ok: true}, true},
		{"term beyond prefix", doc, fakeTexts{text: strings.Repeat("x", 2000) + " mdcg", ok: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.texts).Validate(context.Background(), tt.doc)
			if !tt.warn {
				assert.Nil(t, w)
				return
			}
			require.NotNil(t, w)
			assert.Equal(t, []string{"mdcg", "2019-11"}, w.ExpectedTerms)
			assert.Contains(t, w.Message, "mdcg, 2019-11")
			assert.Contains(t, w.String(), "verify")
		})
	}
}
