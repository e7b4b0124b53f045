package domain

import "time"

// DefaultExpiryWindow is added to the delivery-confirmation time to compute
// when a code stops being acceptable.
const DefaultExpiryWindow = 5 * time.Minute

// CodeLength is the number of digits in both the code and the ghost code.
const CodeLength = 6

// Status is the lifecycle state of a one-time password record.
//
// IDLE -> SENT -> DELIVERED -> {EXPIRED | CONSUMED}
// CONSUMED -> {COMPLETED | INVALIDATED}
// FAILED is reachable from IDLE/SENT on delivery errors.
type Status string

const (
	StatusIdle        Status = "IDLE"
	StatusSent        Status = "SENT"
	StatusDelivered   Status = "DELIVERED"
	StatusFailed      Status = "FAILED"
	StatusExpired     Status = "EXPIRED"
	StatusConsumed    Status = "CONSUMED"
	StatusCompleted   Status = "COMPLETED"
	StatusInvalidated Status = "INVALIDATED"
)

// Terminal reports whether a record in this status can never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusExpired, StatusFailed, StatusCompleted, StatusInvalidated:
		return true
	}
	return false
}

// Purpose scopes a batch of OTP records to one action class. Records are only
// ever compared against siblings sharing the same user and purpose, and each
// purpose maps to its own mail template.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// TemplateID returns the mail template identifier for this purpose.
func (p Purpose) TemplateID() string {
	switch p {
	case PurposePasswordReset:
		return "ForgotPasswordTemplate"
	default:
		return "EmailVerificationTemplate"
	}
}

// OneTimePassword is a single challenge record. Code is the 6-digit secret
// delivered to the user's address; GhostCode is the second-factor token that
// never leaves the server except in the response to a successful validation.
// Both are unique across the entire store.
type OneTimePassword struct {
	ID           string // ULID
	UserID       string
	Purpose      Purpose
	Status       Status
	Code         string
	GhostCode    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ExpiryWindow time.Duration
}

// Expired reports whether the code is past its acceptance deadline. The
// transition to StatusExpired is applied lazily during validation passes,
// never by a background sweep.
func (o OneTimePassword) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
