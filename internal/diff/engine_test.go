package diff

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_ReplacedLine(t *testing.T) {
	s := Compare([]string{"a\n", "b\n", "c\n"}, []string{"a\n", "x\n", "c\n"})

	assert.Equal(t, 2, s.Unchanged)
	assert.Equal(t, 1, s.Changed)
	assert.Equal(t, 0, s.Added)
	assert.Equal(t, 0, s.Removed)
	assert.InDelta(t, 2.0/3.0, s.Similarity, 1e-9)
}

func TestCompare_Identity(t *testing.T) {
	inputs := [][]string{
		{"only\n"},
		{"a\n", "b\n", "c\n", "d\n"},
		{"dup\n", "dup\n", "dup\n"},
		{"no trailing newline"},
	}
	for _, x := range inputs {
		s := Compare(x, x)
		assert.Equal(t, 1.0, s.Similarity)
		assert.Equal(t, len(x), s.Unchanged)
		assert.Zero(t, s.Added)
		assert.Zero(t, s.Removed)
		assert.Zero(t, s.Changed)
	}
}

// Opcode counts are not symmetric in general: matching is greedy on the
// longest block, so a=[a b d b c] vs b=[c c d b d] can pick different blocks
// per direction. These pairs have a unique best alignment.
func TestCompare_CuratedSymmetricCases(t *testing.T) {
	pairs := []struct{ a, b []string }{
		{[]string{"a\n", "b\n"}, []string{"a\n", "b\n", "c\n", "d\n"}},
		{[]string{"x\n"}, nil},
		{[]string{"a\n", "b\n", "c\n"}, []string{"c\n", "b\n", "a\n"}},
		{[]string{"1\n", "2\n", "3\n", "4\n"}, []string{"1\n", "9\n", "4\n", "5\n"}},
	}
	for _, p := range pairs {
		ab := Compare(p.a, p.b)
		ba := Compare(p.b, p.a)
		assert.Equal(t, ab.Added, ba.Removed)
		assert.Equal(t, ab.Removed, ba.Added)
	}
}

func TestCompare_Disjoint(t *testing.T) {
	s := Compare([]string{"a\n", "b\n"}, []string{"x\n", "y\n", "z\n"})

	assert.Equal(t, 0.0, s.Similarity)
	assert.Equal(t, 3, s.Changed)
	assert.Equal(t, 0, s.Unchanged)
}

func TestCompare_EmptyInputs(t *testing.T) {
	s := Compare(nil, nil)
	assert.Equal(t, 1.0, s.Similarity)
	assert.Zero(t, s.Total())

	s = Compare(nil, []string{"a\n", "b\n"})
	assert.Equal(t, 2, s.Added)
	assert.Equal(t, 0.0, s.Similarity)
}

func TestStats_Summary(t *testing.T) {
	s := Stats{Added: 1, Removed: 2, Changed: 3, Unchanged: 4, Similarity: 0.5}
	assert.Equal(t, "Similarity: 50.0% | Added: 1 | Removed: 2 | Changed: 3 | Unchanged: 4", s.Summary())
	assert.Equal(t, 10, s.Total())
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single without newline", "abc", []string{"abc"}},
		{"keeps endings", "a\nb\n", []string{"a\n", "b\n"}},
		{"trailing fragment", "a\nb", []string{"a\n", "b"}},
		{"blank lines", "a\n\nb\n", []string{"a\n", "\n", "b\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.in))
		})
	}
}

func TestUnified(t *testing.T) {
	out, err := Unified([]string{"a\n", "b\n", "c\n"}, []string{"a\n", "x\n", "c\n"}, "old", "new", 1)
	require.NoError(t, err)

	assert.Contains(t, out, "--- old")
	assert.Contains(t, out, "+++ new")
	assert.Contains(t, out, "@@ -1,3 +1,3 @@")
	assert.Contains(t, out, "-b\n")
	assert.Contains(t, out, "+x\n")
}

func TestUnified_NoDifferences(t *testing.T) {
	out, err := Unified([]string{"a\n"}, []string{"a\n"}, "old", "new", DefaultContextLines)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHTML(t *testing.T) {
	out, err := HTML([]string{"a\n", "<b>\n", "c\n"}, []string{"a\n", "x\n", "c\n", "d\n"}, "Old & Rev1", "New", 3)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Old &amp; Rev1")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.Contains(t, out, `<tr class="chg">`)
	assert.Contains(t, out, `<tr class="add">`)
	assert.NotContains(t, out, "No differences found.")
}

func TestHTML_Identical(t *testing.T) {
	out, err := HTML([]string{"a\n"}, []string{"a\n"}, "A", "B", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "No differences found.")

	out, err = HTML(nil, nil, "A", "B", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "No differences found.")
}

func TestCompareTexts(t *testing.T) {
	r, err := CompareTexts(
		Side{ID: 1, Text: "a\nb\nc\n"},
		Side{ID: 2, Title: "Second", Text: "a\nx\nc\n"},
		Options{Context: 3, IncludeHTML: true},
	)
	require.NoError(t, err)

	assert.Equal(t, "Document 1", r.DocATitle)
	assert.Equal(t, "Second", r.DocBTitle)
	assert.Equal(t, 1, r.Stats.Changed)
	assert.Contains(t, r.Unified, "+x")
	assert.NotEmpty(t, r.HTML)
}

func TestReport_Exports(t *testing.T) {
	generated := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	r, err := CompareTexts(Side{ID: 1, Title: "A"}, Side{ID: 2, Title: "B", Text: "new\n"}, Options{Context: 3})
	require.NoError(t, err)

	csvOut, err := r.CSV(generated)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,A,2,B,0.0%,1,0,0,0,2024-03-01 09:30", lines[1])

	md := r.Markdown(generated)
	assert.Contains(t, md, "**Generated:** 2024-03-01 09:30")
	assert.Contains(t, md, "- [ ] Review 1 added line(s) in Document B")
	assert.Contains(t, md, "**Major changes detected**")
	assert.Contains(t, md, "```diff\n")

	same, err := CompareTexts(Side{ID: 1, Text: "x\n"}, Side{ID: 2, Text: "x\n"}, Options{})
	require.NoError(t, err)
	assert.Contains(t, same.Markdown(generated), "Documents are identical")
	assert.Contains(t, same.Markdown(generated), "(no differences)")
}
