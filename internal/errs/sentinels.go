// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrStaleVersion indicates optimistic concurrency failure (expected version mismatch).
	// The caller must re-fetch and retry; the store never merges.
	ErrStaleVersion = errors.New("stale version")

	// ErrForbidden indicates the caller lacks the required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrExpired indicates an invitation past its expiry.
	ErrExpired = errors.New("expired")

	// ErrBatchTooLarge indicates a batch request exceeding the configured cap.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrUpstreamUnavailable indicates blob storage or the URL signer is unreachable.
	// Always retryable by the caller with backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., record ID reuse).
	ErrAlreadyExists = errors.New("already exists")
)
