package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dbadmin/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionRowInsert AuditAction = "row_insert"
	ActionRowUpdate AuditAction = "row_update"
	ActionRowDelete AuditAction = "row_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry records one successful mutation.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	Table        string        `json:"table"`
	AddressedBy  string        `json:"addressedBy,omitempty"`
	RowKey       string        `json:"rowKey,omitempty"`
	OldValues    []string      `json:"oldValues,omitempty"`
	NewValues    []string      `json:"newValues,omitempty"`
	RowsAffected int64         `json:"rowsAffected"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction, rowsAffected int64) AuditSeverity {
	switch action {
	case ActionRowDelete:
		return SeverityHigh
	case ActionRowUpdate:
		if rowsAffected > 1 {
			return SeverityHigh
		}
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// auditLog is a bounded in-memory ring of recent entries.
type auditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

func newAuditLog(capacity int) *auditLog {
	return &auditLog{entries: make([]AuditEntry, capacity)}
}

func (a *auditLog) add(e AuditEntry) {
	if len(a.entries) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

// recent returns up to n entries, newest first. n <= 0 returns all.
func (a *auditLog) recent(n int) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.next
	if a.full {
		size = len(a.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (a.next - 1 - i + len(a.entries)) % len(a.entries)
		out = append(out, a.entries[idx])
	}
	return out
}

// recordAudit stamps, logs and retains an audit entry.
func (s *Service) recordAudit(ctx context.Context, e AuditEntry) AuditEntry {
	e.ID = uuid.New().String()
	e.Severity = determineSeverity(e.Action, e.RowsAffected)
	e.CreatedAt = s.now()
	e.IPAddress = ipAddressFrom(ctx)
	e.UserAgent = userAgentFrom(ctx)

	logging.WithFields(ctx,
		"audit_id", e.ID,
		"action", string(e.Action),
		"severity", string(e.Severity),
		"table", e.Table,
	).Info("audit", "row_key", e.RowKey, "rows", e.RowsAffected)

	s.audit.add(e)
	return e
}

// RecentAudit returns up to n recent audit entries, newest first.
func (s *Service) RecentAudit(n int) []AuditEntry {
	return s.audit.recent(n)
}
