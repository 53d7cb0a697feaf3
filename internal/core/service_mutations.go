package core

// service_mutations.go implements Add, Edit and Delete.
//
// Each operation reads the schema once, validates the submitted values,
// writes through the store in a single atomic call and, on success only,
// returns the refreshed table. Failures leave the store unchanged and are
// returned without retry.

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/dbadmin/internal/logging"
)

// Add validates raw and inserts the transformed row.
func (s *Service) Add(ctx context.Context, table string, raw Row) (*TableData, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	log := logging.WithFields(ctx, "table", table, "operation", "add")
	log.Debug("add started")

	desc, err := s.catalog.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := desc.CheckRow(len(raw)); err != nil {
		return nil, err
	}

	cols := desc.ColumnNames()
	row, err := s.dispatch.ValidateRow(ctx, table, cols, normalizeInput(raw), nil)
	if err != nil {
		log.Warn("add rejected", "error", err)
		return nil, err
	}
	row = coerceRow(desc, row)

	if err := s.store.Insert(ctx, table, cols, row); err != nil {
		log.Warn("insert failed", "error", err)
		return nil, opError("add", table, err)
	}

	entry := s.recordAudit(ctx, AuditEntry{
		Action:       ActionRowInsert,
		Table:        table,
		NewValues:    s.auditValues(table, cols, row),
		RowsAffected: 1,
	})
	log.Info("row inserted", "audit_id", entry.ID)

	return s.listDesc(ctx, desc)
}

// Edit validates raw against the previously displayed row and writes the
// transformed row over it.
func (s *Service) Edit(ctx context.Context, table string, original, raw Row) (*TableData, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	log := logging.WithFields(ctx, "table", table, "operation", "edit")
	log.Debug("edit started")

	desc, err := s.catalog.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := desc.CheckRow(len(raw)); err != nil {
		return nil, err
	}
	if err := desc.CheckRow(len(original)); err != nil {
		return nil, err
	}

	cols := desc.ColumnNames()
	original = coerceRow(desc, normalizeInput(original))
	row, err := s.dispatch.ValidateRow(ctx, table, cols, normalizeInput(raw), original)
	if err != nil {
		log.Warn("edit rejected", "error", err)
		return nil, err
	}
	row = coerceRow(desc, row)

	addressed, key := s.address(log, desc, original)
	var n int64
	if addressed == AddressByKey {
		n, err = s.store.UpdateByKey(ctx, table, cols, desc.PrimaryKey, key, row)
	} else {
		n, err = s.store.UpdateWhereEquals(ctx, table, cols, row, original)
	}
	if err != nil {
		log.Warn("update failed", "error", err)
		return nil, opError("edit", table, err)
	}
	if n == 0 {
		return nil, opError("edit", table, ErrNoMatch)
	}

	entry := s.recordAudit(ctx, AuditEntry{
		Action:       ActionRowUpdate,
		Table:        table,
		AddressedBy:  string(addressed),
		RowKey:       keyText(addressed, key),
		OldValues:    s.auditValues(table, cols, original),
		NewValues:    s.auditValues(table, cols, row),
		RowsAffected: n,
	})
	log.Info("row updated", "audit_id", entry.ID, "rows", n)

	return s.listDesc(ctx, desc)
}

// Delete removes the previously displayed row. The caller must confirm.
func (s *Service) Delete(ctx context.Context, table string, row Row, confirmed bool) (*TableData, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	log := logging.WithFields(ctx, "table", table, "operation", "delete")
	log.Debug("delete started")

	desc, err := s.catalog.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := desc.CheckRow(len(row)); err != nil {
		return nil, err
	}

	cols := desc.ColumnNames()
	row = coerceRow(desc, normalizeInput(row))

	addressed, key := s.address(log, desc, row)
	var n int64
	if addressed == AddressByKey {
		n, err = s.store.DeleteByKey(ctx, table, desc.PrimaryKey, key)
	} else {
		n, err = s.store.DeleteWhereEquals(ctx, table, cols, row)
	}
	if err != nil {
		log.Warn("delete failed", "error", err)
		return nil, opError("delete", table, err)
	}
	if n == 0 {
		return nil, opError("delete", table, ErrNoMatch)
	}

	entry := s.recordAudit(ctx, AuditEntry{
		Action:       ActionRowDelete,
		Table:        table,
		AddressedBy:  string(addressed),
		RowKey:       keyText(addressed, key),
		OldValues:    s.auditValues(table, cols, row),
		RowsAffected: n,
	})
	log.Info("row deleted", "audit_id", entry.ID, "rows", n)

	return s.listDesc(ctx, desc)
}

// address picks key or full-row addressing for row.
func (s *Service) address(log *slog.Logger, desc TableDescriptor, row Row) (AddressMode, any) {
	if s.addressBy != AddressByKey {
		return AddressByRow, nil
	}
	idx := desc.Index(desc.PrimaryKey)
	if desc.PrimaryKey == "" || idx < 0 {
		log.Warn("table has no primary key; matching on all columns", "error", ErrNoPrimaryKey)
		return AddressByRow, nil
	}
	return AddressByKey, row[idx]
}

// auditValues stringifies row for the audit trail, masking secret columns.
func (s *Service) auditValues(table string, cols []string, row Row) []string {
	vals := row.Strings()
	for i, col := range cols {
		if rule, ok := s.rules.Lookup(table, col); ok {
			if _, secret := rule.(Hash); secret {
				vals[i] = "***"
			}
		}
	}
	return vals
}

func keyText(mode AddressMode, key any) string {
	if mode != AddressByKey {
		return ""
	}
	return keyString(key)
}
