package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDetectorRun(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DetectorRunsTotal.WithLabelValues("zscore", "ok"))
	RecordDetectorRun("zscore", "ok", 0.001)
	after := testutil.ToFloat64(DefaultMetrics.DetectorRunsTotal.WithLabelValues("zscore", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordReportPublished(t *testing.T) {
	okBefore := testutil.ToFloat64(DefaultMetrics.ReportsPublished.WithLabelValues("kafka", "ok"))
	errBefore := testutil.ToFloat64(DefaultMetrics.ReportsPublished.WithLabelValues("kafka", "error"))

	RecordReportPublished("kafka", nil)
	RecordReportPublished("kafka", errors.New("broker down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(DefaultMetrics.ReportsPublished.WithLabelValues("kafka", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.ReportsPublished.WithLabelValues("kafka", "error")))
}

func TestRecordDropped_UnknownKind(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RecordsDropped.WithLabelValues("unknown"))
	RecordDropped("")
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.RecordsDropped.WithLabelValues("unknown")))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	RecordAnalysis("ok", 0.01, 3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "chain_fraud_lab_analysis_runs_total"))
}
