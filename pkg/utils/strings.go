package utils

import "strings"

// SplitList splits s on sep, trims each element and drops empty ones.
// SplitList(" a, ,b ", ",") returns [a b].
func SplitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
