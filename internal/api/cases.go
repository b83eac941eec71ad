package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/storage"
)

// CreateCaseRequest is the POST /cases body.
type CreateCaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AddAddressesRequest is the POST /cases/{id}/addresses body.
type AddAddressesRequest struct {
	Addresses []domain.CaseAddress `json:"addresses"`
}

// AddTransactionsRequest is the POST /cases/{id}/transactions body.
type AddTransactionsRequest struct {
	Transactions []domain.CaseTransaction `json:"transactions"`
}

// AddedResponse reports how many members were written.
type AddedResponse struct {
	Added int `json:"added"`
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	now := s.now().UTC()
	c := &domain.Case{
		ID:          s.newCaseID(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cases.Create(r.Context(), c); err != nil {
		s.logger.Error().Err(err).Str("case_id", c.ID).Msg("failed to create case")
		writeError(w, "failed to create case", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.cases.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list cases")
		writeError(w, "failed to list cases", http.StatusInternalServerError)
		return
	}
	if cases == nil {
		cases = []*domain.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	c, err := s.cases.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, "case not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("case_id", id).Msg("failed to load case")
		writeError(w, "failed to load case", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddCaseAddresses(w http.ResponseWriter, r *http.Request) {
	var req AddAddressesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Addresses) == 0 {
		writeError(w, "addresses must not be empty", http.StatusBadRequest)
		return
	}
	for i := range req.Addresses {
		a := &req.Addresses[i]
		if strings.TrimSpace(a.Address) == "" {
			writeError(w, "address is required", http.StatusBadRequest)
			return
		}
		if a.RiskScore != nil && (*a.RiskScore < 0 || *a.RiskScore > 1) {
			writeError(w, "risk_score must be between 0 and 1", http.StatusBadRequest)
			return
		}
		a.Address = address.CanonicalOrRaw(strings.TrimSpace(a.Address))
	}

	id := mux.Vars(r)["id"]
	n, err := s.cases.AddAddresses(r.Context(), id, req.Addresses, s.now().UTC())
	s.writeAdded(w, id, n, err)
}

func (s *Server) handleAddCaseTransactions(w http.ResponseWriter, r *http.Request) {
	var req AddTransactionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Transactions) == 0 {
		writeError(w, "transactions must not be empty", http.StatusBadRequest)
		return
	}
	for i := range req.Transactions {
		tx := &req.Transactions[i]
		if strings.TrimSpace(tx.TxHash) == "" {
			writeError(w, "tx_hash is required", http.StatusBadRequest)
			return
		}
		if tx.Amount.IsNegative() {
			writeError(w, "amount must be >= 0", http.StatusBadRequest)
			return
		}
		tx.TxHash = strings.TrimSpace(tx.TxHash)
		if tx.Address != "" {
			tx.Address = address.CanonicalOrRaw(tx.Address)
		}
	}

	id := mux.Vars(r)["id"]
	n, err := s.cases.AddTransactions(r.Context(), id, req.Transactions, s.now().UTC())
	s.writeAdded(w, id, n, err)
}

func (s *Server) writeAdded(w http.ResponseWriter, id string, n int, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, "case not found", http.StatusNotFound)
	case err != nil:
		s.logger.Error().Err(err).Str("case_id", id).Msg("failed to update case")
		writeError(w, "failed to update case", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, AddedResponse{Added: n})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
