package search

import (
	"strings"
	"unicode"
)

const (
	excerptWindow  = 200
	excerptStride  = 50
	excerptLead    = 50
	excerptMinTail = 100
)

// Excerpt returns the window of text with the most query-term hits, starting a
// little before it and marking truncated ends with ellipses.
func Excerpt(text, query string) string {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	terms := strings.Fields(strings.ToLower(query))

	best, bestScore := 0, 0
	for i := 0; i < len(lower)-excerptMinTail; i += excerptStride {
		chunk := string(lower[i:min(i+excerptWindow, len(lower))])
		score := 0
		for _, t := range terms {
			if strings.Contains(chunk, t) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	start := max(0, best-excerptLead)
	end := min(len(runes), best+excerptWindow)
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}
