package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Decision("granted")
	m.ParseFailure()
	m.CommandSent("UNLOCK", errors.New("x"))
	m.RingSize(3)
	assert.Nil(t, m.Registry())
}

func TestMetrics_CountersExported(t *testing.T) {
	m := metrics.New()
	m.Decision("granted")
	m.Decision("granted")
	m.Decision("denied")
	m.ParseFailure()
	m.CommandSent("UNLOCK", nil)

	n, err := testutil.GatherAndCount(m.Registry(), "gatewise_access_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "two label sets")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `gatewise_access_decisions_total{verdict="granted"} 2`)
	assert.Contains(t, string(body), "gatewise_aggregator_parse_failures_total 1")
	assert.Contains(t, string(body), `gatewise_commands_sent_total{command="UNLOCK",result="ok"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.ParseFailure()
	n, err := testutil.GatherAndCount(b.Registry(), "gatewise_aggregator_parse_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
