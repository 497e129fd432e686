package identifier

import (
	"fmt"
	"regexp"
)

var (
	revisionRe = regexp.MustCompile(`(?i)rev(?:ision)?\.?\s*(\d+)`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
	semverRe   = regexp.MustCompile(`(?i)v(?:ersion)?\.?\s*(\d+(?:\.\d+)?)`)
	editionRe  = regexp.MustCompile(`(?i)ed(?:ition)?\.?\s*(\d+)`)
)

// ExtractVersion pulls a version label ("Rev. 1", "v2.0", "Ed. 3") and a
// 20xx year from a title. Either may be empty.
func ExtractVersion(title string) (version, year string) {
	if m := revisionRe.FindStringSubmatch(title); m != nil {
		version = "Rev. " + m[1]
	}
	if m := yearRe.FindStringSubmatch(title); m != nil {
		year = m[1]
	}
	if version == "" {
		if m := semverRe.FindStringSubmatch(title); m != nil {
			version = fmt.Sprintf("v%s", m[1])
		}
	}
	if version == "" {
		if m := editionRe.FindStringSubmatch(title); m != nil {
			version = "Ed. " + m[1]
		}
	}
	return version, year
}
