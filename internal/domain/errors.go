package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DimensionMismatchError reports a collection whose configured vector
// size differs from what the embedding service emits. Fatal unless the
// operator opted into recreation.
type DimensionMismatchError struct {
	Collection string
	Have       int // size of the existing collection
	Want       int // size the embedder emits
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %q has vector size %d but embeddings are size %d",
		e.Collection, e.Have, e.Want)
}

// CountMismatchError reports an embedding response whose vector count
// does not match the submitted text count. The cycle is abandoned
// before any mutation, so a retry sees the same rows.
type CountMismatchError struct {
	Texts   int
	Vectors int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("embedding count mismatch: got %d vectors for %d texts", e.Vectors, e.Texts)
}

// ProtocolError reports a response whose shape matches no known
// contract. Retrying a malformed contract will not help, so these are
// never retried.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Detail
}

// ConsistencyViolationError reports external interference, such as a
// collection vanishing between EnsureCollection and Upsert. Fatal.
type ConsistencyViolationError struct {
	Collection string
	Detail     string
}

func (e *ConsistencyViolationError) Error() string {
	return fmt.Sprintf("consistency violation on collection %q: %s", e.Collection, e.Detail)
}

// EmbeddingFailedError wraps the final error after the retry ceiling
// was exhausted against the embedding service.
type EmbeddingFailedError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingFailedError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *EmbeddingFailedError) Unwrap() error { return e.Err }

// StatusError is a non-success HTTP response from an external service.
// Codes 429 and >= 500 are considered transient by the default retry
// classifier.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Transient reports whether err is worth retrying. Protocol,
// dimension and consistency errors are contract failures and are
// surfaced immediately; everything else (network errors, timeouts,
// 429/5xx statuses) is assumed to be a blip.
func Transient(err error) bool {
	var proto *ProtocolError
	var dim *DimensionMismatchError
	var consistency *ConsistencyViolationError
	var count *CountMismatchError
	if errors.As(err, &proto) || errors.As(err, &dim) || errors.As(err, &consistency) || errors.As(err, &count) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	return true
}
