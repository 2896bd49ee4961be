// Package errors provides structured error types for tally.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for tally.
const (
	// Business failures
	CodeTaskNotFound      Code = "TASK_NOT_FOUND"
	CodeInvalidTask       Code = "INVALID_TASK"
	CodeEventNotFound     Code = "EVENT_NOT_FOUND"
	CodeDuplicateTask     Code = "DUPLICATE_TASK"
	CodeParentNotFound    Code = "PARENT_NOT_FOUND"
	CodeTaskCycle         Code = "TASK_CYCLE"
	CodeTaskHasChildren   Code = "TASK_HAS_CHILDREN"
	CodeNotUndoable       Code = "NOT_UNDOABLE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeImportRejected    Code = "IMPORT_REJECTED"

	// Transaction and driver failures
	CodeTransactionFailed Code = "TRANSACTION_FAILED"

	// Structural failures
	CodeUnsupportedSchema Code = "UNSUPPORTED_SCHEMA"
	CodeMigrationFailed   Code = "MIGRATION_FAILED"
	CodeInvalidTaskTree   Code = "INVALID_TASK_TREE"
	CodeDuplicateTaskIDs  Code = "DUPLICATE_TASK_IDS"

	// Configuration and lifecycle
	CodeConfigInvalid  Code = "CONFIG_INVALID"
	CodeUnknownBackend Code = "UNKNOWN_BACKEND"
	CodeNotConnected   Code = "NOT_CONNECTED"
)

// Kind groups error codes by how callers must react to them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindBusiness failures are recoverable and reported through the
	// issuing command.
	KindBusiness
	// KindTransaction failures come from the driver and leave the
	// database unchanged.
	KindTransaction
	// KindStructural failures mean the data cannot be trusted. They are
	// fatal at the controller boundary.
	KindStructural
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindBusiness:
		return "business"
	case KindTransaction:
		return "transaction"
	case KindStructural:
		return "structural"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

var codeKinds = map[Code]Kind{
	CodeTaskNotFound:      KindBusiness,
	CodeInvalidTask:       KindBusiness,
	CodeEventNotFound:     KindBusiness,
	CodeDuplicateTask:     KindBusiness,
	CodeParentNotFound:    KindBusiness,
	CodeTaskCycle:         KindBusiness,
	CodeTaskHasChildren:   KindBusiness,
	CodeNotUndoable:       KindBusiness,
	CodeInvalidTransition: KindBusiness,
	CodeImportRejected:    KindBusiness,
	CodeTransactionFailed: KindTransaction,
	CodeUnsupportedSchema: KindStructural,
	CodeMigrationFailed:   KindStructural,
	CodeInvalidTaskTree:   KindStructural,
	CodeDuplicateTaskIDs:  KindStructural,
	CodeConfigInvalid:     KindConfig,
	CodeUnknownBackend:    KindConfig,
	CodeNotConnected:      KindConfig,
}

// TallyError is the structured error type for tally.
type TallyError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *TallyError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *TallyError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *TallyError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Kind returns the error kind for this error's code.
func (e *TallyError) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindUnknown
}

// Fatal reports whether the error must stop the application.
func (e *TallyError) Fatal() bool {
	return e.Kind() == KindStructural
}

// MarshalJSON implements json.Marshaler.
func (e *TallyError) MarshalJSON() ([]byte, error) {
	type alias TallyError
	aux := struct {
		*alias
		Kind     string `json:"kind"`
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
		Kind:  e.Kind().String(),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a TallyError with the same code.
func (e *TallyError) Is(target error) bool {
	t, ok := target.(*TallyError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *TallyError) WithCause(err error) *TallyError {
	return &TallyError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrTaskNotFound returns an error when a task doesn't exist.
func ErrTaskNotFound(id int) *TallyError {
	return &TallyError{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %d not found", id),
		Fix:  "Run 'tally task list' to see available tasks",
	}
}

// ErrInvalidTask returns an error for a task id that is not positive.
func ErrInvalidTask(id int) *TallyError {
	return &TallyError{
		Code: CodeInvalidTask,
		What: fmt.Sprintf("invalid task id %d", id),
		Why:  "Task ids must be greater than zero; 0 is the root",
	}
}

// ErrEventNotFound returns an error when an event doesn't exist.
func ErrEventNotFound(id int) *TallyError {
	return &TallyError{
		Code: CodeEventNotFound,
		What: fmt.Sprintf("event %d not found", id),
		Fix:  "Run 'tally event list' to see recorded events",
	}
}

// ErrDuplicateTask returns an error when a task id is already taken.
func ErrDuplicateTask(id int) *TallyError {
	return &TallyError{
		Code: CodeDuplicateTask,
		What: fmt.Sprintf("task %d already exists", id),
		Why:  "Task ids are chosen by the caller and must be unique",
	}
}

// ErrParentNotFound returns an error when a task references a missing parent.
func ErrParentNotFound(id, parent int) *TallyError {
	return &TallyError{
		Code: CodeParentNotFound,
		What: fmt.Sprintf("parent %d of task %d not found", parent, id),
		Fix:  "Use 0 for top level tasks or create the parent first",
	}
}

// ErrTaskCycle returns an error when a parent change would create a cycle.
func ErrTaskCycle(id, parent int) *TallyError {
	return &TallyError{
		Code: CodeTaskCycle,
		What: fmt.Sprintf("task %d cannot be moved under %d", id, parent),
		Why:  "The new parent is the task itself or one of its descendants",
	}
}

// ErrTaskHasChildren returns an error when deleting a task that still has subtasks.
func ErrTaskHasChildren(id int) *TallyError {
	return &TallyError{
		Code: CodeTaskHasChildren,
		What: fmt.Sprintf("task %d has subtasks", id),
		Fix:  "Delete or move the subtasks first",
	}
}

// ErrNotUndoable returns an error for commands without a rollback.
func ErrNotUndoable(what string) *TallyError {
	return &TallyError{
		Code: CodeNotUndoable,
		What: fmt.Sprintf("%s cannot be undone", what),
	}
}

// ErrInvalidTransition returns an error for an illegal command state change.
func ErrInvalidTransition(from, to string) *TallyError {
	return &TallyError{
		Code: CodeInvalidTransition,
		What: fmt.Sprintf("cannot go from %s to %s", from, to),
	}
}

// ErrImportRejected returns an error carrying the diagnostic of a bulk
// replace that left the database unchanged.
func ErrImportRejected(diagnostic string) *TallyError {
	return &TallyError{
		Code: CodeImportRejected,
		What: diagnostic,
		Why:  "The import was rolled back; existing tasks and events are unchanged",
		Fix:  "Correct the document and import it again",
	}
}

// ErrTransaction wraps a driver or transaction failure.
func ErrTransaction(op string, cause error) *TallyError {
	return &TallyError{
		Code:  CodeTransactionFailed,
		What:  fmt.Sprintf("%s failed", op),
		Why:   "The database rejected the operation and no changes were committed",
		Cause: cause,
	}
}

// ErrUnsupportedSchema returns an error for databases written by a newer version.
func ErrUnsupportedSchema(stored, supported int) *TallyError {
	return &TallyError{
		Code: CodeUnsupportedSchema,
		What: fmt.Sprintf("database schema version %d is not supported", stored),
		Why:  fmt.Sprintf("This build understands schema versions up to %d", supported),
		Fix:  "Upgrade tally to a version that supports this database",
	}
}

// ErrMigrationFailed returns an error for a failed schema migration.
func ErrMigrationFailed(from, to int, backup string, cause error) *TallyError {
	fix := "Restore the database from a backup"
	if backup != "" {
		fix = fmt.Sprintf("Restore the database from the backup at %s", backup)
	}
	return &TallyError{
		Code:  CodeMigrationFailed,
		What:  fmt.Sprintf("migrating database from version %d to %d failed", from, to),
		Fix:   fix,
		Cause: cause,
	}
}

// ErrInvalidTaskTree returns an error when the stored tasks do not form a forest.
func ErrInvalidTaskTree() *TallyError {
	return &TallyError{
		Code: CodeInvalidTaskTree,
		What: "the task list is not a valid tree",
		Why:  "Some tasks form a cycle, reference a missing parent, or are invalid",
		Fix:  "Repair the database or import a consistent task list",
	}
}

// ErrDuplicateTaskIDs returns an error when stored task ids are not unique.
func ErrDuplicateTaskIDs() *TallyError {
	return &TallyError{
		Code: CodeDuplicateTaskIDs,
		What: "the task list contains duplicate ids",
		Fix:  "Repair the database or import a consistent task list",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *TallyError {
	return &TallyError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check ~/.tally/config.yaml and fix the invalid field",
	}
}

// ErrUnknownBackend returns an error for an unknown storage backend name.
func ErrUnknownBackend(name string) *TallyError {
	return &TallyError{
		Code: CodeUnknownBackend,
		What: fmt.Sprintf("unknown storage backend %q", name),
		Fix:  "Use one of: sqlite, postgres, memory",
	}
}

// ErrNotConnected returns an error when no backend is connected.
func ErrNotConnected() *TallyError {
	return &TallyError{
		Code: CodeNotConnected,
		What: "not connected to a storage backend",
	}
}

// AsTallyError returns the first TallyError in err's chain, or nil.
func AsTallyError(err error) *TallyError {
	var te *TallyError
	if stderrors.As(err, &te) {
		return te
	}
	return nil
}

// KindOf returns the kind of the first TallyError in err's chain.
func KindOf(err error) Kind {
	if te := AsTallyError(err); te != nil {
		return te.Kind()
	}
	return KindUnknown
}

// IsFatal reports whether err carries a structural failure.
func IsFatal(err error) bool {
	return KindOf(err) == KindStructural
}

// HasCode reports whether err's chain contains a TallyError with code.
func HasCode(err error, code Code) bool {
	te := AsTallyError(err)
	for te != nil {
		if te.Code == code {
			return true
		}
		te = AsTallyError(te.Cause)
	}
	return false
}

// Wrap wraps a generic error into a TallyError with unknown code.
func Wrap(err error, what string) *TallyError {
	return &TallyError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
