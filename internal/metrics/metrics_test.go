package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveRequest("items", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("items", "GET", 200, 20*time.Millisecond)
	m.ObserveSubmit("create", true)
	m.ObserveReload("close")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("items", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submits.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("close")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("items", "GET", 0, time.Second)
	m.ObserveSubmit("edit", false)
	m.ObserveReload("completion")
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSubmit("edit", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `katalog_itemform_submits_total{mode="edit",result="error"} 1`)
}
