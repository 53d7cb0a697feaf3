package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dbadmin/internal/core"
	"github.com/JonMunkholm/dbadmin/internal/report"
)

// maxBodySize caps JSON request bodies (1MB).
const maxBodySize = 1 << 20

// handleHealth reports liveness and the backing database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": s.service.Database(),
	})
}

// handleListTables returns table names in catalog order.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.Tables(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"database": s.service.Database(),
		"tables":   tables,
	})
}

// handleTableData returns every row of a table. With ?display=1 foreign
// key columns are rendered as "key: label".
func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	if display, _ := strconv.ParseBool(r.URL.Query().Get("display")); display {
		data, err := s.service.ListDisplay(r.Context(), table)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, data)
		return
	}

	data, err := s.service.List(r.Context(), table)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}

// handleForm describes the input fields of a table. ?row= carries the
// displayed row as a JSON array to prefill an edit form.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var original core.Row
	if raw := r.URL.Query().Get("row"); raw != "" {
		row, err := decodeRow([]byte(raw))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "row must be a JSON array")
			return
		}
		original = row
	}

	fields, err := s.service.Form(r.Context(), table, original)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"table":  table,
		"fields": fields,
	})
}

// handleReport renders a fresh report. ?format= selects the output.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.cfg.Engine.ReportFormat
	}
	format, err := report.ParseFormat(format)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.service.Report(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, snap, format); err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleSaveReport builds a report and writes it to the configured file.
func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Format == "" {
		req.Format = s.cfg.Engine.ReportFormat
	}
	if _, err := report.ParseFormat(req.Format); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.service.Report(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := report.WriteFile(s.cfg.Engine.ReportFile, snap, req.Format); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"path":   s.cfg.Engine.ReportFile,
		"format": req.Format,
		"tables": len(snap.Sections),
	})
}

// decodeJSON reads a size-limited JSON body. Numbers stay json.Number so
// the engine sees their exact text.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeRow parses a JSON array into a row.
func decodeRow(data []byte) (core.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row []any
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return core.Row(row), nil
}
