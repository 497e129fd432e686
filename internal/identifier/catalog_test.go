package identifier

import (
	"strings"
	"testing"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCatalog_Check(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("known current", func(t *testing.T) {
		info := catalog.Check(&domain.Document{ID: 1, Title: "ISO 14971 Application of Risk Management", Jurisdiction: "ISO", Version: strPtr("2019")})
		assert.Equal(t, StatusCurrent, info.Status)
		assert.True(t, info.IsCurrent)
		assert.Equal(t, "2019", info.LatestVersion)
	})

	t.Run("older revision is outdated", func(t *testing.T) {
		info := catalog.Check(&domain.Document{ID: 2, Title: "MDCG 2019-11 Rev. 0 Software", Jurisdiction: "EU"})
		assert.Equal(t, StatusOutdated, info.Status)
		assert.False(t, info.IsCurrent)
		assert.Equal(t, "Rev. 1", info.LatestVersion)
	})

	t.Run("older year in version label is outdated", func(t *testing.T) {
		info := catalog.Check(&domain.Document{ID: 3, Title: "ISO 14971 2007 Risk management", Jurisdiction: "ISO"})
		assert.Equal(t, StatusOutdated, info.Status)
	})

	t.Run("untracked", func(t *testing.T) {
		info := catalog.Check(&domain.Document{ID: 4, Title: "Blue Guide 2022", Jurisdiction: "EU"})
		assert.Equal(t, StatusUnknown, info.Status)
		assert.True(t, info.IsCurrent)
		assert.Empty(t, info.LatestVersion)
	})
}

func TestLoadCatalog(t *testing.T) {
	src := `
"ISO 9999":
  latest_version: "2024"
  latest_date: "2024-01"
  check_url: "https://example.org/iso9999"
`
	c, err := LoadCatalog(strings.NewReader(src), nil)
	require.NoError(t, err)

	kv, ok := c.Lookup("ISO 9999")
	require.True(t, ok)
	assert.Equal(t, "2024", kv.LatestVersion)

	_, err = LoadCatalog(strings.NewReader("- not a map"), nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]VersionInfo{
		{Jurisdiction: "EU", Status: StatusCurrent},
		{Jurisdiction: "EU", Status: StatusOutdated},
		{Jurisdiction: "", Status: StatusUnknown},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 1, s.Outdated)
	assert.Equal(t, 1, s.Unknown)
	assert.Equal(t, 2, s.ByJurisdiction["EU"].Total)
	assert.Equal(t, 1, s.ByJurisdiction["Other"].Unknown)
}

func TestCatalog_CheckAll(t *testing.T) {
	docs := []domain.Document{
		{ID: 1, Title: "ISO 14971 Application of Risk Management", Jurisdiction: "ISO", Version: strPtr("2019")},
		{ID: 2, Title: "MDCG 2019-11 Rev. 0 Software", Jurisdiction: "EU"},
		{ID: 3, Title: "Blue Guide 2022", Jurisdiction: "EU"},
	}
	catalog := DefaultCatalog()

	all := catalog.CheckAll(docs, "")
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].DocID, all[1].DocID, all[2].DocID})

	outdated := catalog.CheckAll(docs, StatusOutdated)
	require.Len(t, outdated, 1)
	assert.Equal(t, int64(2), outdated[0].DocID)
}
