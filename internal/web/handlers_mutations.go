package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dbadmin/internal/core"
)

// rowRequest is the body of the row mutation routes. Rows are JSON arrays
// with one value per column, in column order.
type rowRequest struct {
	Values   []any `json:"values"`
	Original []any `json:"original"`
	Row      []any `json:"row"`
	Confirm  bool  `json:"confirm"`
}

func (s *Server) decodeRowRequest(w http.ResponseWriter, r *http.Request) (rowRequest, bool) {
	var req rowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// handleAddRow validates and inserts one row.
func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRowRequest(w, r)
	if !ok {
		return
	}
	if req.Values == nil {
		writeError(w, r, http.StatusBadRequest, "missing values")
		return
	}

	data, err := s.service.Add(r.Context(), chi.URLParam(r, "table"), core.Row(req.Values))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, data)
}

// handleEditRow validates values and writes them over the original row.
func (s *Server) handleEditRow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRowRequest(w, r)
	if !ok {
		return
	}
	if req.Values == nil || req.Original == nil {
		writeError(w, r, http.StatusBadRequest, "missing original or values")
		return
	}

	data, err := s.service.Edit(r.Context(), chi.URLParam(r, "table"), core.Row(req.Original), core.Row(req.Values))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}

// handleDeleteRow removes the given row once the client confirms.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRowRequest(w, r)
	if !ok {
		return
	}
	if req.Row == nil {
		writeError(w, r, http.StatusBadRequest, "missing row")
		return
	}

	data, err := s.service.Delete(r.Context(), chi.URLParam(r, "table"), core.Row(req.Row), req.Confirm)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}
