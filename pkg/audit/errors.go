package audit

import "fmt"

// StorageError wraps a storage backend failure.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// NewStorageError creates a storage error.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NotSuppressedError is returned when restoring a rule that is not
// currently emergency-suppressed.
type NotSuppressedError struct {
	RuleID string
}

// Error implements the error interface.
func (e *NotSuppressedError) Error() string {
	return fmt.Sprintf("rule %q is not emergency-suppressed", e.RuleID)
}
