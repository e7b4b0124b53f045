package service

import (
	"errors"
	"fmt"
)

// Client errors are surfaced verbatim to the caller with a 4xx mapping.
// Everything else is wrapped into ErrInternal and surfaced opaquely.
var (
	ErrNoMode           = errors.New("invalid request, one of initiate, validate or complete is required")
	ErrOnlyOneMode      = errors.New("invalid request, only one mode should be active. Either initiate, validate or complete")
	ErrCodeRequired     = errors.New("OTP is required")
	ErrHandshakeInputs  = errors.New("ghost code and OTP are required")
	ErrInvalidCode      = errors.New("invalid OTP")
	ErrInvalidGhostCode = errors.New("invalid ghost code")
	ErrUserNotFound     = errors.New("invalid request, user does not exist")
	ErrUnverifiedEmail  = errors.New("email address is not verified")
	ErrWeakPassword     = errors.New("invalid password")
	ErrPasswordRequired = errors.New("new password is required")
)

// ErrInternal classifies unexpected failures. Handlers must not expose the
// wrapped detail.
var ErrInternal = errors.New("internal error")

var clientErrors = []error{
	ErrNoMode,
	ErrOnlyOneMode,
	ErrCodeRequired,
	ErrHandshakeInputs,
	ErrInvalidCode,
	ErrInvalidGhostCode,
	ErrUserNotFound,
	ErrUnverifiedEmail,
	ErrWeakPassword,
	ErrPasswordRequired,
}

// IsClientError reports whether err is safe to show to the caller.
func IsClientError(err error) bool {
	for _, c := range clientErrors {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// wrapServer passes client errors through unchanged and folds anything else
// into ErrInternal, preserving the cause for logs.
func wrapServer(err error) error {
	if err == nil || IsClientError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
