package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to check for them.
var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnresolvedKey    = errors.New("unresolved key")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrStorage          = errors.New("storage error")
	ErrNotConfirmed     = errors.New("delete not confirmed")
	ErrRowShape         = errors.New("row does not match table columns")
	ErrNoPrimaryKey     = errors.New("table has no primary key")
	ErrNoMatch          = errors.New("no row matched")
)

// UnknownTable returns ErrUnknownTable annotated with the table name.
func UnknownTable(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// ValidationError is a rule rejection for one column.
type ValidationError struct {
	Table  string
	Column string
	Rule   string // kind of the rejecting rule
	Value  string
	Reason string
	Err    error // underlying cause, e.g. *InvalidSelectionError
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s", e.Column, e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnresolvedKeyError reports a key with no row in the referenced table.
type UnresolvedKeyError struct {
	Table string
	Key   any
}

func (e *UnresolvedKeyError) Error() string {
	return fmt.Sprintf("unresolved key %v in table %s", e.Key, e.Table)
}

func (e *UnresolvedKeyError) Unwrap() error { return ErrUnresolvedKey }

// InvalidSelectionError reports selection text whose key part cannot be parsed.
type InvalidSelectionError struct {
	Column string
	Input  string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %q for %s", e.Input, e.Column)
}

func (e *InvalidSelectionError) Unwrap() error { return ErrInvalidSelection }

// StorageError is a failure reported by the backing store. The store is
// unchanged when it is returned from a mutation.
type StorageError struct {
	Op      string
	Table   string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Table, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes both ErrStorage and the driver error.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

// NewStorageError wraps a driver error.
func NewStorageError(op, table string, err error) *StorageError {
	return &StorageError{Op: op, Table: table, Message: err.Error(), Err: err}
}

// IsRetryable reports whether the caller may retry the operation unchanged.
// Only storage failures qualify; rejected input will be rejected again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StorageError
	return errors.As(err, &se)
}

// ValidationErrors extracts every ValidationError from a (possibly joined) error.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}
