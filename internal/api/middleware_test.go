package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"chain-fraud-lab/internal/logging"
	"chain-fraud-lab/internal/storage/memory"
)

func doWithKey(h http.Handler, method, target, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIKey_Required(t *testing.T) {
	s := NewServer(newTestOrchestrator(), logging.Nop(),
		WithReportStore(memory.NewReportStore()),
		WithCaseStore(memory.NewCaseStore()),
		WithAPIKey("s3cret"),
	)

	rec := doWithKey(s, http.MethodGet, "/cases", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or missing API key", decodeError(t, rec).Message)

	rec = doWithKey(s, http.MethodGet, "/cases", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doWithKey(s, http.MethodGet, "/reports/missing", "s3cret")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doWithKey(s, http.MethodGet, "/cases", "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doWithKey(s, http.MethodPost, "/analyze", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_ExemptRoutes(t *testing.T) {
	s := NewServer(newTestOrchestrator(), logging.Nop(), WithAPIKey("s3cret"))

	assert.Equal(t, http.StatusOK, doWithKey(s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doWithKey(s, http.MethodGet, "/metrics", "").Code)
}

func TestAPIKey_EmptyKeyLeavesAPIOpen(t *testing.T) {
	s := NewServer(newTestOrchestrator(), logging.Nop(), WithCaseStore(memory.NewCaseStore()), WithAPIKey(""))

	rec := doWithKey(s, http.MethodGet, "/cases", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
