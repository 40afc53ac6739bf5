// Package common defines shared constants and sentinel errors used across
// client and server layers of farmledger. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Storage-level errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")

	// Sync-engine errors.
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrOffline           = errors.New("offline")
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrRemoteReadFailed  = errors.New("remote read failed")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// StorageError names the collection on which a local storage operation
// failed. It wraps the underlying cause, so both the sentinel values above
// and driver errors stay matchable via errors.Is/As.
type StorageError struct {
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failing collection name. A nil err
// returns nil so call sites can wrap unconditionally.
func NewStorageError(collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Collection: collection, Err: err}
}
