package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  Identifier
		ok    bool
	}{
		{"mdcg", "MDCG 2019-11 Software Guidance", "MDCG 2019-11", true},
		{"mdcg without separator", "mdcg 2020 1 clinical evidence", "MDCG 2020-1", true},
		{"iso", "ISO 13485 Quality Management", "ISO 13485", true},
		{"iso with publication year", "ISO 13485:2016 Quality Management Systems", "ISO 13485", true},
		{"iec", "IEC 62304 Software Lifecycle", "IEC 62304", true},
		{"iso part", "ISO 10993-1 Biological evaluation", "ISO 10993-1", true},
		{"mdr", "MDR 2017/745 Medical Device Regulation", "MDR 2017/745", true},
		{"ivdr", "IVDR 2017/746", "IVDR 2017/746", true},
		{"cfr", "21 CFR Part 820", "21 CFR Part 820", true},
		{"cfr without part", "21cfr 11 electronic records", "21 CFR Part 11", true},
		{"uk mdr", "UK MDR 2002 Amendments", "UK MDR 2002", true},
		{"imdrf", "IMDRF SaMD Key Definitions", "IMDRF SaMD N12", true},
		{"imdrf without definition", "IMDRF SaMD clinical evaluation", "", false},
		{"unrecognized", "Random Document Title", "", false},
		{"blue guide", "Blue Guide 2022", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.title)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	titles := []string{
		"MDCG 2019-11 Software Guidance",
		"ISO 14971:2019 Application of risk management",
		"Guidance on cybersecurity",
		"",
	}
	for _, title := range titles {
		first, ok1 := Normalize(title)
		second, ok2 := Normalize(title)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second)
	}
}

func TestNormalize_RulePriority(t *testing.T) {
	// matches both the MDCG and the ISO rule; MDCG is earlier
	id, ok := Normalize("ISO 14971 alignment in MDCG 2019-16")
	assert.True(t, ok)
	assert.Equal(t, Identifier("MDCG 2019-16"), id)

	// MDR rule is earlier than UK MDR
	id, ok = Normalize("UK MDR 2002 vs MDR 2017 comparison")
	assert.True(t, ok)
	assert.Equal(t, Identifier("MDR 2017/745"), id)
}

func TestNormalizer_With(t *testing.T) {
	n := NewNormalizer().With(NewKeywordRule("blue_guide", "EU Blue Guide", "blue guide"))

	id, ok := n.Normalize("The Blue Guide 2022")
	assert.True(t, ok)
	assert.Equal(t, Identifier("EU Blue Guide"), id)

	// existing rules keep precedence
	id, ok = n.Normalize("Blue Guide reference to MDCG 2021-24")
	assert.True(t, ok)
	assert.Equal(t, Identifier("MDCG 2021-24"), id)
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		title       string
		wantVersion string
		wantYear    string
	}{
		{"MDCG 2019-11 Rev. 1", "Rev. 1", "2019"},
		{"Document v2.0", "v2.0", ""},
		{"Standard Ed. 3", "Ed. 3", ""},
		{"ISO 13485:2016", "", "2016"},
		{"MDCG 2020-1 Rev. 1", "Rev. 1", "2020"},
		{"Plain Document Title", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			v, y := ExtractVersion(tt.title)
			assert.Equal(t, tt.wantVersion, v)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}
