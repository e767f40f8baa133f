package nodeview

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for node view operations. Callers discriminate error
// kinds with errors.Is; a missing node is reported as a boolean result,
// never as an error.
var (
	// ErrSchemaMismatch indicates a registry row that cannot be projected:
	// required fields are missing or a configured column does not exist on
	// the data table.
	ErrSchemaMismatch = errors.New("registry entry does not match schema")

	// ErrUpstreamUnavailable indicates the registry or the node view could
	// not be queried.
	ErrUpstreamUnavailable = errors.New("node storage unavailable")

	// ErrNilID indicates a zero ID in a batch that does not allow them.
	ErrNilID = errors.New("nil node ID in batch")
)

// Error wraps node view failures with operation context.
type Error struct {
	// Op is the operation that failed (e.g., "Rebuild", "Resolve").
	Op string

	// Err is the underlying error.
	Err error

	// Msg is an optional human-readable message.
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// wrapStorageErr classifies a storage failure. Context cancellation keeps
// its identity so errors.Is(err, context.Canceled) holds; everything else
// becomes an upstream-unavailable kind.
func wrapStorageErr(op, msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Err: err, Msg: msg}
	}
	return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err), Msg: msg}
}
