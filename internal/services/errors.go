package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the purchases backend was never configured
	ErrNotInitialized = errors.New("purchase system not initialized, please restart the app")
	// ErrInvalidPackage is returned before any backend call for packages missing identifiers
	ErrInvalidPackage = errors.New("package not available for purchase")
	// ErrUserCancelled marks a purchase dismissed by the user
	ErrUserCancelled = errors.New("purchase cancelled by user")
	// ErrNetworkTimeout marks a remote call that ran past its deadline
	ErrNetworkTimeout = errors.New("network request timed out")
)

// Result codes surfaced to the UI
const (
	ResultCancelled         = "CANCELLED"
	ResultPackageNotAllowed = "PACKAGE_NOT_AVAILABLE"
)

// SDKError carries a purchases backend failure through unchanged
type SDKError struct {
	Op  string
	Err error
}

func (e *SDKError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SDKError) Unwrap() error { return e.Err }

// PersistenceError is a failed write to key-value storage
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
