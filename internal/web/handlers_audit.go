package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dbadmin/internal/core"
)

// defaultAuditLimit is the number of entries returned without ?limit=.
const defaultAuditLimit = 50

// handleAudit returns recent mutations, newest first.
// Optional filters: ?table=, ?action=, ?severity=, ?limit=.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultAuditLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	table := q.Get("table")
	action := core.AuditAction(q.Get("action"))
	severity := core.AuditSeverity(q.Get("severity"))

	entries := make([]core.AuditEntry, 0, limit)
	for _, e := range s.service.RecentAudit(0) {
		if table != "" && e.Table != table {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		if severity != "" && e.Severity != severity {
			continue
		}
		entries = append(entries, e)
		if len(entries) == limit {
			break
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
