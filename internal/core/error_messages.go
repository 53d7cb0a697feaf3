package core

// Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Typed engine errors are matched first; anything else is matched
// against known driver message patterns.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate value: A record with this value already exists
//	        Patterns: "unique constraint", "duplicate key"
//	DB002 - Foreign key: Referenced record does not exist or is still in use
//	        Patterns: "foreign key"
//	DB003 - Not null: A required column was left empty
//	        Patterns: "not null", "not-null"
//	DB004 - Rejected: A check constraint or trigger rejected the change
//	        Patterns: "check constraint", any other *StorageError
//	DB005 - Connection: Unable to reach the database
//	        Patterns: "connection refused", "connection reset", "no such host"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout", "deadline exceeded"
//	DB007 - Busy: Database is locked by another operation
//	        Patterns: "database is locked", "busy", "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid email                  (*ValidationError, email rule)
//	VAL002 - Invalid number                 (*ValidationError, numeric/integer rule)
//	VAL003 - Invalid phone                  (*ValidationError, phone rule)
//	VAL004 - Invalid selection              (*ValidationError wrapping ErrInvalidSelection)
//	VAL005 - Rejected value                 (*ValidationError, any other rule)
//	VAL006 - Wrong number of values         (ErrRowShape)
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown table                  (ErrUnknownTable)
//	TBL002 - No primary key                 (ErrNoPrimaryKey)
//
// # Operation Errors (OP001-OP099)
//
//	OP001 - Not confirmed                   (ErrNotConfirmed)
//	OP002 - No matching row                 (ErrNoMatch)
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicate = UserMessage{
		Message: "A record with this value already exists",
		Action:  "Change the duplicated value and try again",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist or is still in use",
		Action:  "Check related tables before changing this row",
		Code:    "DB002",
	}
	msgNotNull = UserMessage{
		Message: "A required column was left empty",
		Action:  "Fill in every required column",
		Code:    "DB003",
	}
	msgRejected = UserMessage{
		Message: "The database rejected the change",
		Action:  "Review the values against the table's constraints",
		Code:    "DB004",
	}
	msgConnection = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB005",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again",
		Code:    "DB006",
	}
	msgBusy = UserMessage{
		Message: "Database is busy with another operation",
		Action:  "Please try again",
		Code:    "DB007",
	}
)

// errorPatterns maps driver error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "unique constraint", msg: msgDuplicate},
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "foreign key", msg: msgForeignKey},
	{pattern: "not null", msg: msgNotNull},
	{pattern: "not-null", msg: msgNotNull},
	{pattern: "check constraint", msg: msgRejected},
	{pattern: "connection refused", msg: msgConnection},
	{pattern: "connection reset", msg: msgConnection},
	{pattern: "no such host", msg: msgConnection},
	{pattern: "deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "database is locked", msg: msgBusy},
	{pattern: "busy", msg: msgBusy},
	{pattern: "deadlock", msg: msgBusy},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Typed engine errors are checked first, then driver message patterns.
//
//	_, err := svc.Add(ctx, "users", row)
//	msg := MapError(err)
//	// msg.Code == "VAL001" for a rejected email
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := typedMessage(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var se *StorageError
	if errors.As(err, &se) {
		msg := msgRejected
		msg.Message = fmt.Sprintf("%s: %s", msgRejected.Message, se.Message)
		return msg
	}

	return defaultMessage
}

func typedMessage(err error) (UserMessage, bool) {
	if ves := ValidationErrors(err); len(ves) > 0 {
		reasons := make([]string, len(ves))
		for i, ve := range ves {
			reasons[i] = ve.Error()
		}
		return UserMessage{
			Message: strings.Join(reasons, "; "),
			Action:  "Correct the highlighted values and submit again",
			Code:    validationCode(ves[0]),
		}, true
	}

	switch {
	case errors.Is(err, ErrInvalidSelection):
		return UserMessage{Message: "Selection does not name a record", Action: "Pick a value from the list", Code: "VAL004"}, true
	case errors.Is(err, ErrRowShape):
		return UserMessage{Message: "Wrong number of values for this table", Action: "Provide one value per column", Code: "VAL006"}, true
	case errors.Is(err, ErrUnknownTable):
		return UserMessage{Message: "The specified table does not exist", Action: "Verify the table name is correct", Code: "TBL001"}, true
	case errors.Is(err, ErrNoPrimaryKey):
		return UserMessage{Message: "Table has no primary key", Action: "Rows are matched on all columns", Code: "TBL002"}, true
	case errors.Is(err, ErrNotConfirmed):
		return UserMessage{Message: "Delete was not confirmed", Action: "Confirm the delete to proceed", Code: "OP001"}, true
	case errors.Is(err, ErrNoMatch):
		return UserMessage{Message: "The row no longer matches what was displayed", Action: "Reload the table and try again", Code: "OP002"}, true
	}
	return UserMessage{}, false
}

func validationCode(ve *ValidationError) string {
	if errors.Is(ve, ErrInvalidSelection) {
		return "VAL004"
	}
	switch ve.Rule {
	case KindEmail:
		return "VAL001"
	case KindNumeric, KindInteger:
		return "VAL002"
	case KindPhone:
		return "VAL003"
	case KindForeignKey:
		return "VAL004"
	default:
		return "VAL005"
	}
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
