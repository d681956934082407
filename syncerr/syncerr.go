// Package syncerr defines the error taxonomy shared by the migration and
// replication engines. Every fallible operation in this module returns a
// plain Go error; callers that need to branch on the failure kind use
// errors.As to recover a *syncerr.Error and switch on its Kind.
package syncerr

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the closed set of failure categories this module
// distinguishes; callers are expected to switch exhaustively over it.
type Kind int

const (
	InvalidArgument Kind = iota
	ForeignKeyViolation
	DeferredChangeFailed
	FullResyncRequired
	HashMismatch
	UnresolvedConflict
	Database
	Destructive
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case ForeignKeyViolation:
		return "ForeignKeyViolation"
	case DeferredChangeFailed:
		return "DeferredChangeFailed"
	case FullResyncRequired:
		return "FullResyncRequired"
	case HashMismatch:
		return "HashMismatch"
	case UnresolvedConflict:
		return "UnresolvedConflict"
	case Database:
		return "Database"
	case Destructive:
		return "Destructive"
	default:
		return "Unknown"
	}
}

// Error is the single structured error type used across the module. Only
// the fields relevant to Kind are populated; the rest are left zero.
type Error struct {
	Kind Kind

	Message string
	Cause   error

	// ForeignKeyViolation
	TableName string
	PKValue   json.RawMessage
	Details   string

	// DeferredChangeFailed
	Entry  any
	Reason string

	// FullResyncRequired
	ClientVersion          int64
	OldestAvailableVersion int64

	// HashMismatch
	Expected string
	Actual   string

	// UnresolvedConflict
	Local  any
	Remote any

	// Destructive
	OperationKind string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	switch e.Kind {
	case ForeignKeyViolation:
		return fmt.Sprintf("foreign key violation on %s: %s", e.TableName, e.Details)
	case DeferredChangeFailed:
		return fmt.Sprintf("deferred change could not be applied: %s", e.Reason)
	case FullResyncRequired:
		return fmt.Sprintf("client version %d is behind oldest retained version %d", e.ClientVersion, e.OldestAvailableVersion)
	case HashMismatch:
		return fmt.Sprintf("hash mismatch: expected %s, got %s", e.Expected, e.Actual)
	case UnresolvedConflict:
		return "unresolved conflict between local and remote entries"
	case Destructive:
		return fmt.Sprintf("refusing destructive operation %s: destructive mode disabled", e.OperationKind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, syncerr.ErrHashMismatch) style checks against a
// sentinel carrying only a Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func sentinel(k Kind) *Error { return &Error{Kind: k} }

var (
	ErrInvalidArgument    = sentinel(InvalidArgument)
	ErrForeignKey         = sentinel(ForeignKeyViolation)
	ErrDeferredFailed     = sentinel(DeferredChangeFailed)
	ErrFullResyncRequired = sentinel(FullResyncRequired)
	ErrHashMismatch       = sentinel(HashMismatch)
	ErrUnresolvedConflict = sentinel(UnresolvedConflict)
	ErrDatabase           = sentinel(Database)
	ErrDestructive        = sentinel(Destructive)
)

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func DB(cause error) *Error {
	return &Error{Kind: Database, Message: cause.Error(), Cause: cause}
}
