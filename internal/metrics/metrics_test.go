package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportLifecycle(t *testing.T) {
	m := New()

	m.ExportStarted("streaming")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("streaming")))

	m.ExportFinished("precios", "streaming", "ok", 120, 250*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("streaming")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("precios", "streaming", "ok")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.rows.WithLabelValues("precios", "streaming")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.ExportStarted("buffered")
	a.ExportFinished("marcas", "buffered", "query_error", 0, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.exports.WithLabelValues("marcas", "buffered", "query_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.exports.WithLabelValues("marcas", "buffered", "query_error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ExportStarted("buffered")
	m.ExportFinished("regiones", "buffered", "ok", 3, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pricewatch_exports_total{mode="buffered",outcome="ok",type="regiones"} 1`)
	assert.Contains(t, body, "pricewatch_export_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
