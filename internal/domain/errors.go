package domain

import "errors"

var (
	// ErrInvalidParameter signals out-of-domain input (coordinates, radius, limit, identifier).
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNotFound signals a well-formed identifier with no matching record.
	ErrNotFound = errors.New("not found")
	// ErrBackendUnavailable signals a connection, timeout or transport failure of a backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrSchemaConflict signals a collection dimension mismatch or a non-idempotent constraint conflict.
	ErrSchemaConflict = errors.New("schema conflict")
	// ErrUnclassifiable signals a request with no spatial, text or identifier signal.
	ErrUnclassifiable = errors.New("insufficient signal")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrReasonerUnavailable signals that no generative reasoner is configured or it failed.
	ErrReasonerUnavailable = errors.New("reasoner unavailable")
)

// BackendError ties a failure to the backend that produced it.
// It matches both ErrBackendUnavailable and the underlying cause via errors.Is.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return e.Backend + ": " + e.Err.Error()
}

// Unwrap exposes the sentinel and the cause.
func (e *BackendError) Unwrap() []error { return []error{ErrBackendUnavailable, e.Err} }

// NewBackendError wraps err as a failure of the named backend. nil stays nil.
func NewBackendError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}
