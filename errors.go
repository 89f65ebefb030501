package docgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Error kinds categorize errors by the pipeline stage that failed.
const (
	// KindValidation represents errors in the input document or arguments.
	KindValidation = "validation"

	// KindDecompose represents errors raised while decomposing a document.
	KindDecompose = "decompose"

	// KindStorage represents errors returned by the graph store.
	KindStorage = "storage"

	// KindConfiguration represents errors in options or configuration.
	KindConfiguration = "configuration"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	var derr *docgraph.Error
//	if errors.As(err, &derr) && derr.Kind == docgraph.KindStorage {
//	    // the store rejected a mutation; nothing was rolled back
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Ingest.Persist").
	Op string

	// Kind categorizes the error (e.g., KindStorage, KindDecompose).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("docgraph: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("docgraph: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("docgraph: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on
// the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	// Check if target is an Error with matching Kind
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a new Error with the provided context added.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewValidationError creates a new Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewDecomposeError creates a new Error with KindDecompose.
func NewDecomposeError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindDecompose, Err: err}
}

// NewStorageError creates a new Error with KindStorage.
func NewStorageError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindStorage, Err: err}
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed (e.g., "store",
// "badger database"). If logger is nil, slog.Default() is used.
//
// Example usage:
//
//	defer docgraph.CloseWithLog(s, logger, "graph store")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
