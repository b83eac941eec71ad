package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/detector"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/normalization"
	"chain-fraud-lab/internal/orchestrator"
	"chain-fraud-lab/internal/reporting"
	"chain-fraud-lab/internal/storage"
)

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	orchestrator.Request
	// Records is a JSON array of tagged raw records.
	Records json.RawMessage `json:"records,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	if len(req.Records) > 0 {
		records, err := normalization.DecodeRecords(req.Records)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Request.Records = records
	}

	s.analyze(w, r, req.Request, s.analyzer.Analyze)
}

func (s *Server) handleAnalyzeStored(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	s.analyze(w, r, req.Request, s.analyzer.AnalyzeStored)
}

func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (AnalyzeRequest, bool) {
	var req AnalyzeRequest
	ok := decodeBody(w, r, &req)
	return req, ok
}

type analyzeFunc func(context.Context, orchestrator.Request) (*domain.Report, error)

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, req orchestrator.Request, run analyzeFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	report, err := run(ctx, req)
	switch {
	case errors.Is(err, detector.ErrInvalidConfig):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, orchestrator.ErrNoStore):
		writeError(w, err.Error(), http.StatusNotImplemented)
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "analysis timed out", http.StatusGatewayTimeout)
		return
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write to.
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("analysis failed")
		writeError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	s.deliver(r.Context(), report)

	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// deliver stores and publishes the report. Failures are only logged.
func (s *Server) deliver(ctx context.Context, report *domain.Report) {
	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			s.logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to store report")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, report); err != nil {
			s.logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to publish report")
		}
	}
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := s.reports.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, "report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", id).Msg("failed to load report")
		writeError(w, "failed to load report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	entity := address.CanonicalOrRaw(mux.Vars(r)["entity"])

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			writeError(w, "limit must be between 1 and "+strconv.Itoa(maxListLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.reports.ListByEntity(r.Context(), entity, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", entity).Msg("failed to list reports")
		writeError(w, "failed to list reports", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*domain.Report{}
	}

	writeJSON(w, http.StatusOK, reports)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Message: message, Status: status})
}
