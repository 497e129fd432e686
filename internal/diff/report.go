package diff

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Side is one document taking part in a comparison.
type Side struct {
	ID    int64
	Title string
	Text  string
}

func (s Side) label() string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("Document %d", s.ID)
}

type Options struct {
	Context     int
	IncludeHTML bool
}

// Report is the full comparison of two documents.
type Report struct {
	DocAID    int64  `json:"doc_a_id"`
	DocBID    int64  `json:"doc_b_id"`
	DocATitle string `json:"doc_a_title"`
	DocBTitle string `json:"doc_b_title"`
	Stats     Stats  `json:"stats"`
	Unified   string `json:"unified_diff"`
	HTML      string `json:"html_diff,omitempty"`
}

// CompareTexts diffs two documents' texts and renders the requested views.
func CompareTexts(a, b Side, opts Options) (*Report, error) {
	linesA, linesB := SplitLines(a.Text), SplitLines(b.Text)

	r := &Report{
		DocAID:    a.ID,
		DocBID:    b.ID,
		DocATitle: a.label(),
		DocBTitle: b.label(),
		Stats:     Compare(linesA, linesB),
	}

	var err error
	r.Unified, err = Unified(linesA, linesB, r.DocATitle, r.DocBTitle, opts.Context)
	if err != nil {
		return nil, err
	}
	if opts.IncludeHTML {
		r.HTML, err = HTML(linesA, linesB, r.DocATitle, r.DocBTitle, opts.Context)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// CSV exports a one-row summary with a header.
func (r *Report) CSV(generated time.Time) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		{
			"Document A ID", "Document A Title", "Document B ID", "Document B Title",
			"Similarity %", "Lines Added", "Lines Removed", "Lines Changed", "Lines Unchanged",
			"Comparison Date",
		},
		{
			strconv.FormatInt(r.DocAID, 10), r.DocATitle,
			strconv.FormatInt(r.DocBID, 10), r.DocBTitle,
			percent(r.Stats.Similarity),
			strconv.Itoa(r.Stats.Added), strconv.Itoa(r.Stats.Removed),
			strconv.Itoa(r.Stats.Changed), strconv.Itoa(r.Stats.Unchanged),
			generated.Format("2006-01-02 15:04"),
		},
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write diff csv: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders a review report with action items derived from the stats.
func (r *Report) Markdown(generated time.Time) string {
	var b strings.Builder
	s := r.Stats

	fmt.Fprintf(&b, "# Document Comparison Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", generated.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "## Documents Compared\n\n")
	fmt.Fprintf(&b, "| | Document A | Document B |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| **ID** | %d | %d |\n", r.DocAID, r.DocBID)
	fmt.Fprintf(&b, "| **Title** | %s | %s |\n\n", r.DocATitle, r.DocBTitle)
	fmt.Fprintf(&b, "## Summary Statistics\n\n")
	fmt.Fprintf(&b, "- **Similarity:** %s\n", percent(s.Similarity))
	fmt.Fprintf(&b, "- **Lines Added:** %d\n", s.Added)
	fmt.Fprintf(&b, "- **Lines Removed:** %d\n", s.Removed)
	fmt.Fprintf(&b, "- **Lines Changed:** %d\n", s.Changed)
	fmt.Fprintf(&b, "- **Lines Unchanged:** %d\n\n", s.Unchanged)
	fmt.Fprintf(&b, "## Action Items\n\n")

	if s.Similarity == 1.0 {
		b.WriteString("- Documents are identical. No action required.\n")
	} else {
		if s.Added > 0 {
			fmt.Fprintf(&b, "- [ ] Review %d added line(s) in Document B\n", s.Added)
		}
		if s.Removed > 0 {
			fmt.Fprintf(&b, "- [ ] Verify %d removed line(s) from Document A\n", s.Removed)
		}
		if s.Changed > 0 {
			fmt.Fprintf(&b, "- [ ] Examine %d changed line(s)\n", s.Changed)
		}
		if s.Similarity < 0.5 {
			b.WriteString("- [ ] **Major changes detected**: consider full document review\n")
		}
	}

	unified := r.Unified
	if unified == "" {
		unified = "(no differences)\n"
	}
	fmt.Fprintf(&b, "\n## Unified Diff\n\n```diff\n%s", unified)
	if !strings.HasSuffix(unified, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}
