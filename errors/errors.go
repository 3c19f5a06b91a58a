package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline's failure taxonomy. Handlers map
// these onto HTTP statuses; nothing inside the engine retries them.

var (
	// ErrInvalidInput indicates a request rejected before any I/O.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a document, object or vector partition is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrNotProcessed indicates the document exists but has not been
	// ingested yet, so the caller can trigger ingestion.
	ErrNotProcessed = errors.New("document has not been processed yet")

	// ErrStorage indicates a relational or vector-index I/O failure.
	ErrStorage = errors.New("storage operation failed")

	// ErrModel indicates an embedding or scoring model call failed.
	ErrModel = errors.New("model invocation failed")
)

// Wrap wraps an error with a context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Invalidf returns a validation failure with a formatted reason.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsInvalidInput checks if error is a validation failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotProcessed checks if error is a not-yet-processed error.
func IsNotProcessed(err error) bool {
	return errors.Is(err, ErrNotProcessed)
}

// IsStorage checks if error is a storage failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsModel checks if error is a model failure.
func IsModel(err error) bool {
	return errors.Is(err, ErrModel)
}
