// Package common defines shared constants and sentinel errors used across
// the audit core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound       = errors.New("not found")
	ErrInvalidVersion = errors.New("invalid version")

	// Protection-level errors. ErrDecryption covers unknown/expired key
	// versions and authentication-tag failures alike; callers fall back to
	// the masked preview and must never see raw cipher material.
	ErrDecryption = errors.New("decryption failed")

	// ErrPermissionDenied is internal flow control only. It is never
	// returned to a caller as a value: unauthorized reads yield the masked
	// preview instead, so field existence is not leaked.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStoreUnavailable marks the primary store as unreachable. Read
	// paths degrade to the in-memory fallback; write paths are rejected
	// with this error rather than dropping audit entries silently.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrOperationFailed is the generic user-visible failure for export
	// and compare operations. The underlying kind stays in the logs.
	ErrOperationFailed = errors.New("operation failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
