package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/security"
	"github.com/HieuLsw/NetNewsWire/utils"

	"github.com/stretchr/testify/assert"
)

func TestAccountErrorClassifier_Classify(t *testing.T) {
	classifier := NewAccountErrorClassifier()

	tests := map[string]struct {
		err      error
		expected AccountErrorClass
	}{
		"zone deleted by user":   {err: driver.ErrUserDeletedZone, expected: ClassInvalidated},
		"zone missing":           {err: driver.ErrZoneNotFound, expected: ClassInvalidated},
		"wrapped zone deletion":  {err: fmt.Errorf("fetch: %w", driver.ErrUserDeletedZone), expected: ClassInvalidated},
		"expired change token":   {err: driver.ErrChangeTokenExpired, expected: ClassTransient},
		"rate limited":           {err: driver.ErrRateLimited, expected: ClassTransient},
		"temporary failure":      {err: driver.ErrTemporaryFailure, expected: ClassTransient},
		"circuit breaker open":   {err: utils.ErrCircuitBreakerOpen, expected: ClassTransient},
		"context deadline":       {err: context.DeadlineExceeded, expected: ClassTransient},
		"record conflict":        {err: driver.ErrConflict, expected: ClassValidation},
		"record not found":       {err: driver.ErrRecordNotFound, expected: ClassValidation},
		"already subscribed":     {err: ErrAlreadySubscribed, expected: ClassValidation},
		"input validation":       {err: &security.ValidationError{Field: "url", Message: "bad"}, expected: ClassValidation},
		"unknown storage error":  {err: errors.New("disk full"), expected: ClassFatal},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(tt.err))
		})
	}
}

func TestAccountErrorClassifier_WrapPreservesCause(t *testing.T) {
	classifier := NewAccountErrorClassifier()

	wrapped := classifier.Wrap("zone change fetch", driver.ErrUserDeletedZone)
	assert.Equal(t, ClassInvalidated, wrapped.Class)
	assert.ErrorIs(t, wrapped, driver.ErrUserDeletedZone)
	assert.Contains(t, wrapped.Error(), "zone change fetch")
}

func TestAccountErrorClassifier_AlreadyClassifiedKeepsClass(t *testing.T) {
	classifier := NewAccountErrorClassifier()

	inner := NewSyncError(ClassInvalidated, "teardown", nil)
	outer := fmt.Errorf("cycle: %w", inner)
	assert.Equal(t, ClassInvalidated, classifier.Classify(outer))
}
