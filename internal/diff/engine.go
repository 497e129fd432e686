// Package diff compares extracted document texts line by line.
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const DefaultContextLines = 3

// ErrTextUnavailable means one side has no extracted text; the pair cannot be
// compared, which is different from being identical or disjoint.
var ErrTextUnavailable = errors.New("extracted text not available for diff")

// Stats summarises a line-level comparison.
type Stats struct {
	Added      int     `json:"added"`
	Removed    int     `json:"removed"`
	Changed    int     `json:"changed"`
	Unchanged  int     `json:"unchanged"`
	Similarity float64 `json:"similarity"`
}

func (s Stats) Total() int {
	return s.Added + s.Removed + s.Changed + s.Unchanged
}

func (s Stats) Summary() string {
	return fmt.Sprintf("Similarity: %.1f%% | Added: %d | Removed: %d | Changed: %d | Unchanged: %d",
		s.Similarity*100, s.Added, s.Removed, s.Changed, s.Unchanged)
}

// Compare classifies lines of a against b using matching-block opcodes.
// Replaced spans count max(len_a, len_b) changed lines.
func Compare(a, b []string) Stats {
	m := difflib.NewMatcher(a, b)

	var s Stats
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			s.Unchanged += op.I2 - op.I1
		case 'r':
			s.Changed += max(op.I2-op.I1, op.J2-op.J1)
		case 'i':
			s.Added += op.J2 - op.J1
		case 'd':
			s.Removed += op.I2 - op.I1
		}
	}
	s.Similarity = m.Ratio()
	return s
}

// Unified renders a ---/+++/@@ diff with context lines around each hunk.
func Unified(a, b []string, fromLabel, toLabel string, context int) (string, error) {
	if context < 0 {
		context = DefaultContextLines
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  context,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render unified diff: %w", err)
	}
	return out, nil
}

// SplitLines splits text into lines keeping their terminators. A trailing
// fragment without a newline is kept as the last line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
