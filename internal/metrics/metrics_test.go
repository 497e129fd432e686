package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordImport("imported", 20*time.Millisecond)
	m.RecordImport("duplicate", time.Millisecond)
	m.RecordImport("imported", time.Millisecond)
	sim := 0.82
	m.RecordVersionOutcome("superseded", &sim)
	m.RecordVersionOutcome("no_prior", nil)
	m.RecordSearch(3, 5*time.Millisecond)
	m.RecordRankerFailure("semantic")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionOutcomesTotal.WithLabelValues("superseded")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchResultsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankerFailuresTotal.WithLabelValues("semantic")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordImport("imported", time.Second)
		m.RecordVersionOutcome("superseded", nil)
		m.RecordSearch(1, time.Second)
		m.RecordRankerFailure("lexical")
		m.RecordIndexed(2)
		m.RecordHTTPRequest("GET", "/health", "200", time.Second)
	})
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.RecordIndexed(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(a.DocumentsIndexedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DocumentsIndexedTotal))
}
