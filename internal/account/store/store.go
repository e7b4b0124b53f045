package store

import (
	"context"
	"errors"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and hands out Tx-scoped stores for compound operations that must
// be atomic.
type Store interface {
	Users() Users
	OneTimePasswords() OneTimePasswords

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended entry point for the OTP engine's sweep operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves the owner for the public (email-addressed) flow.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified sets email_verified_at to now (idempotent).
	MarkEmailVerified(ctx context.Context, userID string) error
}

type OneTimePasswords interface {
	// CreateOTP inserts a new record. A uniqueness violation on code or
	// ghost_code is reported as ErrAlreadyExists so the caller can re-roll.
	CreateOTP(ctx context.Context, o domain.OneTimePassword) error

	// GetOTPByID returns a record by id.
	GetOTPByID(ctx context.Context, id string) (domain.OneTimePassword, error)

	// ListOTPsByStatus returns the user's records for one purpose in the
	// given status, oldest first. Validation and handshake sweeps iterate
	// this set in order.
	ListOTPsByStatus(ctx context.Context, userID string, purpose domain.Purpose, status domain.Status) ([]domain.OneTimePassword, error)

	// UpdateOTPStatus transitions a record to the given status.
	UpdateOTPStatus(ctx context.Context, id string, status domain.Status) error

	// MarkOTPDelivered transitions a record to DELIVERED and recomputes
	// expires_at from the delivery confirmation time in one write.
	MarkOTPDelivered(ctx context.Context, id string, expiresAt time.Time) error

	// CountOTPs returns the total number of records. Records are an audit
	// trail and are never deleted; this is for diagnostics.
	CountOTPs(ctx context.Context) (int64, error)
}
