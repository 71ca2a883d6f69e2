// ABOUTME: Classification of remote store failures into recovery actions
// ABOUTME: The invalidated class is the only one allowed to trigger destructive local mutation

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/security"
	"github.com/HieuLsw/NetNewsWire/utils"
)

// AccountErrorClass tags a failure with the recovery action it demands.
type AccountErrorClass int

const (
	// ClassTransient: no local state change; retry on a later cycle.
	ClassTransient AccountErrorClass = iota
	// ClassInvalidated: the account's remote zone was deleted or reset.
	// All local feeds and folders must be removed to match.
	ClassInvalidated
	// ClassValidation: the caller supplied something the remote store or
	// this core rejects; propagated verbatim.
	ClassValidation
	// ClassFatal: storage I/O or programmer error; propagated verbatim.
	ClassFatal
)

func (c AccountErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassInvalidated:
		return "invalidated"
	case ClassValidation:
		return "validation"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// SyncError is a classified failure surfaced by the orchestrator.
type SyncError struct {
	Class   AccountErrorClass
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Class, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Class)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NewSyncError wraps a cause with its classification.
func NewSyncError(class AccountErrorClass, message string, cause error) *SyncError {
	return &SyncError{Class: class, Message: message, Cause: cause}
}

// AccountErrorClassifier maps remote failures onto recovery classes.
type AccountErrorClassifier struct{}

// NewAccountErrorClassifier creates a classifier.
func NewAccountErrorClassifier() *AccountErrorClassifier {
	return &AccountErrorClassifier{}
}

// Classify tags err. Already-classified errors keep their class.
func (c *AccountErrorClassifier) Classify(err error) AccountErrorClass {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Class
	}

	switch {
	case errors.Is(err, driver.ErrUserDeletedZone),
		errors.Is(err, driver.ErrZoneNotFound):
		return ClassInvalidated

	case errors.Is(err, driver.ErrChangeTokenExpired),
		errors.Is(err, driver.ErrRateLimited),
		errors.Is(err, driver.ErrTemporaryFailure),
		errors.Is(err, utils.ErrCircuitBreakerOpen),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ClassTransient

	case errors.Is(err, driver.ErrRecordNotFound),
		errors.Is(err, driver.ErrConflict),
		errors.Is(err, ErrAlreadySubscribed),
		isValidationError(err):
		return ClassValidation

	default:
		return ClassFatal
	}
}

// Wrap classifies err and wraps it with stage context.
func (c *AccountErrorClassifier) Wrap(stage string, err error) *SyncError {
	return NewSyncError(c.Classify(err), stage+" failed", err)
}

func isValidationError(err error) bool {
	var verr *security.ValidationError
	return errors.As(err, &verr)
}
