package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a required field is missing or malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrAllProvidersFailed is returned when every configured provider failed and no local fallback exists
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrProviderUnavailable is returned when a provider is short-circuited or not configured
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrCacheMiss is returned by cache repositories for absent or expired entries
	ErrCacheMiss = errors.New("cache miss")
)

// Verification failure kinds. Each is distinct so callers can choose a retry policy.
var (
	ErrNoVerificationLinkFound = errors.New("no verification link found")
	ErrVerificationTimedOut    = errors.New("verification timed out")
	ErrAutomationFailed        = errors.New("browser automation failed")
	ErrMailboxUnavailable      = errors.New("mailbox unavailable")
)

// VerificationError reports a failed verification task with its kind and underlying cause
type VerificationError struct {
	Kind   error
	TaskID string
	Err    error
}

// NewVerificationError builds a VerificationError of the given kind
func NewVerificationError(kind error, taskID string, cause error) *VerificationError {
	return &VerificationError{Kind: kind, TaskID: taskID, Err: cause}
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("verification %s: %v", e.TaskID, e.Kind)
	}
	return fmt.Sprintf("verification %s: %v: %v", e.TaskID, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *VerificationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
