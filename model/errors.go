package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateDocument signals that ingestion found an existing document with
// the same content hash. It is an idempotent short-circuit, not a failure:
// callers receive the existing document ID alongside it.
var ErrDuplicateDocument = errors.New("duplicate document")

// ErrNotFound is returned by store lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ExtractionError reports that a source file was unreadable or contained no
// extractable text. It is local to one document and never aborts a batch.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %v: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports a failed or timed out embedding provider call after
// all configured retries were exhausted.
type EmbeddingError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %v attempts: %v", e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid configuration that would corrupt the
// shared invariants (chunk parameters, embedding dimension mismatch). It is
// fatal at construction time, not recoverable per call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Reason)
}

// StoreError reports that the persistence medium is unavailable or corrupt.
// Reads on a corrupt store fail loudly rather than returning partial results.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error in %v: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
