// Package identifier derives canonical regulatory-document identifiers
// (e.g. "ISO 13485", "MDCG 2019-11") from free-text titles.
//
// Matching is heuristic: rules are tried in order and the first hit wins,
// regardless of how much of the title later rules would cover. A colon after
// a standard number introduces the publication year ("ISO 13485:2016") and is
// not treated as a part separator.
package identifier

import (
	"regexp"
	"strings"
)

// Identifier groups every stored version of the same regulatory instrument.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Rule matches a lowercased title and produces an identifier.
type Rule interface {
	Name() string
	Match(lower string) (Identifier, bool)
}

type extractFunc func(groups []string) Identifier

type patternRule struct {
	name    string
	re      *regexp.Regexp
	extract extractFunc
}

func (r patternRule) Name() string { return r.name }

func (r patternRule) Match(lower string) (Identifier, bool) {
	groups := r.re.FindStringSubmatch(lower)
	if groups == nil {
		return "", false
	}
	return r.extract(groups), true
}

// keywordRule matches when every keyword occurs somewhere in the title.
type keywordRule struct {
	name     string
	keywords []string
	literal  Identifier
}

func (r keywordRule) Name() string { return r.name }

func (r keywordRule) Match(lower string) (Identifier, bool) {
	for _, kw := range r.keywords {
		if !strings.Contains(lower, kw) {
			return "", false
		}
	}
	return r.literal, true
}

func NewPatternRule(name, pattern string, extract func(groups []string) Identifier) Rule {
	return patternRule{name: name, re: regexp.MustCompile(pattern), extract: extract}
}

func NewKeywordRule(name string, literal Identifier, keywords ...string) Rule {
	return keywordRule{name: name, keywords: keywords, literal: literal}
}

// DefaultRules returns the built-in rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		NewPatternRule("mdcg", `mdcg\s*(\d{4})[- ]?(\d+)`, func(g []string) Identifier {
			return Identifier("MDCG " + g[1] + "-" + g[2])
		}),
		NewPatternRule("iso_iec", `(iso|iec)\s*(\d{4,5})(?:-(\d+))?`, func(g []string) Identifier {
			id := strings.ToUpper(g[1]) + " " + g[2]
			if g[3] != "" {
				id += "-" + g[3]
			}
			return Identifier(id)
		}),
		NewKeywordRule("mdr", "MDR 2017/745", "mdr", "2017"),
		NewKeywordRule("ivdr", "IVDR 2017/746", "ivdr", "2017"),
		NewPatternRule("cfr", `21\s*cfr\s*(?:part\s*)?(\d+)`, func(g []string) Identifier {
			return Identifier("21 CFR Part " + g[1])
		}),
		NewKeywordRule("uk_mdr", "UK MDR 2002", "uk", "mdr", "2002"),
		NewKeywordRule("imdrf_samd", "IMDRF SaMD N12", "imdrf", "samd", "definition"),
	}
}

type Normalizer struct {
	rules []Rule
}

// NewNormalizer builds a normalizer over rules; nil means DefaultRules.
func NewNormalizer(rules ...Rule) *Normalizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Normalizer{rules: rules}
}

// With returns a normalizer that tries the extra rules after the existing ones.
func (n *Normalizer) With(extra ...Rule) *Normalizer {
	rules := make([]Rule, 0, len(n.rules)+len(extra))
	rules = append(rules, n.rules...)
	rules = append(rules, extra...)
	return &Normalizer{rules: rules}
}

func (n *Normalizer) Normalize(title string) (Identifier, bool) {
	lower := strings.ToLower(title)
	for _, r := range n.rules {
		if id, ok := r.Match(lower); ok {
			return id, true
		}
	}
	return "", false
}

var defaultNormalizer = NewNormalizer()

// Normalize applies DefaultRules to title.
func Normalize(title string) (Identifier, bool) {
	return defaultNormalizer.Normalize(title)
}
