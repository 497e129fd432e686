package identifier

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed known_versions.yaml
var knownVersionsYAML string

type Status string

const (
	StatusCurrent  Status = "current"
	StatusOutdated Status = "outdated"
	StatusUnknown  Status = "unknown"
)

// KnownVersion is the latest published state of a tracked instrument.
type KnownVersion struct {
	LatestVersion string `yaml:"latest_version" json:"latest_version"`
	LatestDate    string `yaml:"latest_date" json:"latest_date"`
	CheckURL      string `yaml:"check_url" json:"check_url"`
	Notes         string `yaml:"notes" json:"notes,omitempty"`
}

// VersionInfo is the outcome of checking one stored document.
type VersionInfo struct {
	DocID          int64      `json:"doc_id"`
	Title          string     `json:"title"`
	Jurisdiction   string     `json:"jurisdiction"`
	Identifier     Identifier `json:"identifier,omitempty"`
	CurrentVersion string     `json:"current_version,omitempty"`
	LatestVersion  string     `json:"latest_version,omitempty"`
	CurrentDate    string     `json:"current_date,omitempty"`
	LatestDate     string     `json:"latest_date,omitempty"`
	IsCurrent      bool       `json:"is_current"`
	Status         Status     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	UpdateURL      string     `json:"update_url,omitempty"`
}

type Catalog struct {
	normalizer *Normalizer
	known      map[Identifier]KnownVersion
}

// LoadCatalog decodes a YAML mapping of identifier -> KnownVersion.
func LoadCatalog(r io.Reader, normalizer *Normalizer) (*Catalog, error) {
	var raw map[string]KnownVersion
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode known versions: %w", err)
	}

	known := make(map[Identifier]KnownVersion, len(raw))
	for k, v := range raw {
		known[Identifier(k)] = v
	}
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	return &Catalog{normalizer: normalizer, known: known}, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(strings.NewReader(knownVersionsYAML), nil)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(id Identifier) (KnownVersion, bool) {
	kv, ok := c.known[id]
	return kv, ok
}

var revNumberRe = regexp.MustCompile(`(?i)rev\.?\s*(\d+)`)

// Check compares doc against the catalog. Untracked documents are reported as
// unknown but assumed current.
func (c *Catalog) Check(doc *domain.Document) VersionInfo {
	extractedVersion, extractedYear := ExtractVersion(doc.Title)
	current := extractedVersion
	if doc.Version != nil && *doc.Version != "" {
		current = *doc.Version
	}
	if current == "" {
		current = extractedYear
	}

	info := VersionInfo{
		DocID:          doc.ID,
		Title:          doc.Title,
		Jurisdiction:   doc.Jurisdiction,
		CurrentVersion: current,
		CurrentDate:    extractedYear,
		IsCurrent:      true,
	}

	id, ok := c.normalizer.Normalize(doc.Title)
	if ok {
		info.Identifier = id
	}
	known, tracked := c.known[id]
	if !ok || !tracked {
		info.Status = StatusUnknown
		info.Notes = "Version not tracked - manual verification needed"
		return info
	}

	info.LatestVersion = known.LatestVersion
	info.LatestDate = known.LatestDate
	info.Notes = known.Notes
	info.UpdateURL = known.CheckURL
	info.Status = StatusCurrent

	if known.LatestVersion == "" || current == "" || strings.EqualFold(known.LatestVersion, current) {
		return info
	}

	if strings.Contains(strings.ToLower(known.LatestVersion), "rev") {
		latestRev := revNumberRe.FindStringSubmatch(known.LatestVersion)
		currentRev := revNumberRe.FindStringSubmatch(current)
		if latestRev != nil && currentRev != nil && atoi(latestRev[1]) > atoi(currentRev[1]) {
			info.Status = StatusOutdated
		}
	}

	if info.Status == StatusCurrent && extractedYear != "" && len(known.LatestDate) >= 4 {
		latestYear := known.LatestDate[:4]
		// the year only counts when it is part of the version label, not the identifier
		if strings.Contains(current, extractedYear) && atoi(extractedYear) < atoi(latestYear) {
			info.Status = StatusOutdated
		}
	}

	info.IsCurrent = info.Status == StatusCurrent
	return info
}

// CheckAll checks docs in order, optionally keeping only one status.
func (c *Catalog) CheckAll(docs []domain.Document, only Status) []VersionInfo {
	out := make([]VersionInfo, 0, len(docs))
	for i := range docs {
		info := c.Check(&docs[i])
		if only != "" && info.Status != only {
			continue
		}
		out = append(out, info)
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

type JurisdictionSummary struct {
	Total    int `json:"total"`
	Current  int `json:"current"`
	Outdated int `json:"outdated"`
	Unknown  int `json:"unknown"`
}

type Summary struct {
	Total          int                            `json:"total"`
	Current        int                            `json:"current"`
	Outdated       int                            `json:"outdated"`
	Unknown        int                            `json:"unknown"`
	ByJurisdiction map[string]*JurisdictionSummary `json:"by_jurisdiction"`
}

func Summarize(results []VersionInfo) Summary {
	s := Summary{Total: len(results), ByJurisdiction: make(map[string]*JurisdictionSummary)}
	for _, r := range results {
		jur := r.Jurisdiction
		if jur == "" {
			jur = domain.DefaultJurisdiction
		}
		js, ok := s.ByJurisdiction[jur]
		if !ok {
			js = &JurisdictionSummary{}
			s.ByJurisdiction[jur] = js
		}
		js.Total++

		switch r.Status {
		case StatusCurrent:
			s.Current++
			js.Current++
		case StatusOutdated:
			s.Outdated++
			js.Outdated++
		default:
			s.Unknown++
			js.Unknown++
		}
	}
	return s
}
