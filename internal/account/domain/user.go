package domain

import "time"

type User struct {
	ID              string
	Email           string
	Username        string
	PasswordHash    string     // argon2 encoded
	EmailVerifiedAt *time.Time // Timestamp when the email was verified (nullable)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmailVerified reports whether the account has completed email verification.
func (u User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil && !u.EmailVerifiedAt.IsZero()
}
