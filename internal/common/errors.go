// Package common defines shared sentinel and context-carrying errors used
// across the docbox server layers. Callers should use errors.Is / errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Input errors. Wrap with %w and a field-specific message.
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Container hierarchy errors.
	ErrCyclicHierarchy = errors.New("container hierarchy cycle")
)

// BlobStoreError wraps an object-store failure with the operation name and
// the key it was issued against. The underlying cause is preserved for
// logging but must not be exposed to external callers verbatim.
type BlobStoreError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobStoreError) Error() string {
	return fmt.Sprintf("blob store: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BlobStoreError) Unwrap() error { return e.Err }

// RepositoryError wraps a relational-store failure with the operation name.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// BatchItemResult records the outcome for a single item of a batch operation.
type BatchItemResult struct {
	ID  string
	Err error
}

// PartialBatchError reports that a batch operation completed for a strict
// subset of its targets. Failed carries one entry per item that did not
// complete; items absent from Failed succeeded.
type PartialBatchError struct {
	Op     string
	Failed []BatchItemResult
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%s: %d item(s) failed", e.Op, len(e.Failed))
}
