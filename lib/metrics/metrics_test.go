package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGeneration uint64

func (g fixedGeneration) Generation() uint64 { return uint64(g) }

// value returns the sum of all series of the named family.
func value(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return sum
	}
	return 0
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.ObserveResponse("fragment", 5*time.Millisecond)
	m.ObserveResponse("full_document", time.Millisecond)
	m.ObserveResponse("fragment", time.Millisecond)
	m.ObserveReloadInjected()
	m.ObserveError("render_failed")
	m.ObserveHandoff("completed", time.Second)
	m.ObserveHandoff("failed", time.Second)
	m.ObserveDrainTimeout()
	m.TrackGeneration(fixedGeneration(7))

	assert.Equal(t, 3.0, value(t, reg, "test_responses_total"))
	assert.Equal(t, 3.0, value(t, reg, "test_negotiate_duration_seconds"))
	assert.Equal(t, 1.0, value(t, reg, "test_reload_injections_total"))
	assert.Equal(t, 1.0, value(t, reg, "test_errors_total"))
	assert.Equal(t, 2.0, value(t, reg, "test_handoffs_total"))
	assert.Equal(t, 1.0, value(t, reg, "test_drain_timeouts_total"))
	assert.Equal(t, 7.0, value(t, reg, "test_generation"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResponse("fragment", time.Millisecond)
		m.ObserveReloadInjected()
		m.ObserveError("x")
		m.ObserveHandoff("completed", time.Second)
		m.ObserveDrainTimeout()
		m.TrackGeneration(fixedGeneration(1))
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))
	m.ObserveReloadInjected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "hxssr_reload_injections_total 1")
}
