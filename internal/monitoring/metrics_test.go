package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg, reg)

	m.RecordOverrideSync("afterSave", "create", SyncResultSaved)
	m.RecordOverrideSync("afterSave", "create", SyncResultSaved)
	m.RecordSubstitution("override")
	m.RecordHTTPRequest("GET", "/health", "200", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `mailsign_signature_override_sync_total{action="create",event="afterSave",result="saved"} 2`)
	assert.Contains(t, body, `mailsign_signature_substitutions_total{source="override"} 1`)
	assert.Contains(t, body, "mailsign_http_request_duration_seconds")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOverrideSync("afterDelete", "other", SyncResultFailed)
		m.RecordSubstitution("global")
		m.RecordMailSent("ok")
		m.RecordError("x", "y")
		m.RecordPanic()
		m.RecordRateLimitBlock("send")
		m.RecordHTTPRequest("GET", "/", "200", time.Second)
	})
}
