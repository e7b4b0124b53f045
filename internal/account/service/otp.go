package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/notify"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
	"github.com/isuryanarayanan/observable-services/pkg/cryptox"
	"github.com/isuryanarayanan/observable-services/pkg/idx"
	"github.com/isuryanarayanan/observable-services/pkg/slogx"
)

// codeGenAttempts bounds the re-roll loop when a freshly generated code or
// ghost code collides with one already in the store.
const codeGenAttempts = 5

// ErrDeliveryFailed reports that the notifier rejected the message at
// hand-off; the record is persisted as FAILED.
var ErrDeliveryFailed = errors.New("failed to hand off notification for delivery")

// OTPService owns the one-time password lifecycle: generation, delivery
// status tracking, validation and the ghost-code handshake. It is stateless
// business logic over the store; the sweeps in Validate and CompleteHandshake
// each run in a single transaction so concurrent calls cannot consume the
// same record twice.
type OTPService struct {
	Store    store.Store
	Notifier notify.Notifier

	// ExpiryWindow defaults to domain.DefaultExpiryWindow when zero.
	ExpiryWindow time.Duration

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OTPService) window() time.Duration {
	if s.ExpiryWindow > 0 {
		return s.ExpiryWindow
	}
	return domain.DefaultExpiryWindow
}

// Create allocates a new record for the user and purpose and synchronously
// attempts delivery. Status progression: IDLE on insert, SENT once the
// notifier accepts the message, DELIVERED (with expires_at recomputed from
// the delivery time) on success, FAILED on either failure. A hand-off
// failure is returned to the caller; a delivery failure after hand-off is
// only recorded — the create itself still succeeds and the caller must
// initiate again to get a working code.
func (s *OTPService) Create(ctx context.Context, user domain.User, purpose domain.Purpose) (domain.OneTimePassword, error) {
	now := s.now()
	rec := domain.OneTimePassword{
		ID:           idx.New().String(),
		UserID:       user.ID,
		Purpose:      purpose,
		Status:       domain.StatusIdle,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.window()), // provisional; recomputed on delivery
		ExpiryWindow: s.window(),
	}

	if err := s.insertWithUniqueCodes(ctx, &rec); err != nil {
		return domain.OneTimePassword{}, err
	}

	otps := s.Store.OneTimePasswords()
	log := slogx.FromContext(ctx)

	delivery, err := s.Notifier.Compose(purpose.TemplateID(), user.Email, map[string]string{
		"code":  rec.Code,
		"email": user.Email,
	})
	if err != nil {
		if serr := otps.UpdateOTPStatus(ctx, rec.ID, domain.StatusFailed); serr != nil {
			log.Error("failed to record hand-off failure", "otp_id", rec.ID, "err", serr)
		}
		rec.Status = domain.StatusFailed
		return rec, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := otps.UpdateOTPStatus(ctx, rec.ID, domain.StatusSent); err != nil {
		return rec, fmt.Errorf("failed to mark OTP sent: %w", err)
	}
	rec.Status = domain.StatusSent

	if err := delivery.Send(); err != nil {
		log.Warn("OTP delivery failed after hand-off", "otp_id", rec.ID, "err", err)
		if serr := otps.UpdateOTPStatus(ctx, rec.ID, domain.StatusFailed); serr != nil {
			log.Error("failed to record delivery failure", "otp_id", rec.ID, "err", serr)
		}
		rec.Status = domain.StatusFailed
		return rec, nil
	}

	deliveredAt := s.now()
	rec.ExpiresAt = deliveredAt.Add(rec.ExpiryWindow)
	if err := otps.MarkOTPDelivered(ctx, rec.ID, rec.ExpiresAt); err != nil {
		return rec, fmt.Errorf("failed to mark OTP delivered: %w", err)
	}
	rec.Status = domain.StatusDelivered

	return rec, nil
}

// insertWithUniqueCodes generates the code pair and inserts the record,
// re-rolling both codes on a storage-layer uniqueness collision.
func (s *OTPService) insertWithUniqueCodes(ctx context.Context, rec *domain.OneTimePassword) error {
	for attempt := range codeGenAttempts {
		code, err := cryptox.GenerateDigitCode(domain.CodeLength)
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}
		ghost, err := cryptox.GenerateDigitCode(domain.CodeLength)
		if err != nil {
			return fmt.Errorf("failed to generate ghost code: %w", err)
		}
		rec.Code = code
		rec.GhostCode = ghost

		err = s.Store.OneTimePasswords().CreateOTP(ctx, *rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("failed to store OTP: %w", err)
		}

		slogx.FromContext(ctx).Warn("OTP code collision, re-rolling", "attempt", attempt+1)
	}
	return fmt.Errorf("failed to generate unique OTP codes after %d attempts", codeGenAttempts)
}

// Validate sweeps all of the user's DELIVERED records for the purpose in a
// single transaction. Records past their deadline transition to EXPIRED, the
// first code match transitions to CONSUMED and yields its ghost code. The
// sweep is never short-circuited: every sibling is still checked for expiry
// after a match. The swept transitions are committed even when no record
// matches; only the no-match result itself is an error.
func (s *OTPService) Validate(ctx context.Context, code, userID string, purpose domain.Purpose) (string, domain.OneTimePassword, error) {
	var (
		matched   bool
		ghostCode string
		rec       domain.OneTimePassword
	)

	now := s.now()
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		otps, err := tx.OneTimePasswords().ListOTPsByStatus(ctx, userID, purpose, domain.StatusDelivered)
		if err != nil {
			return fmt.Errorf("failed to list delivered OTPs: %w", err)
		}

		for _, o := range otps {
			switch {
			case o.Expired(now):
				if err := tx.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusExpired); err != nil {
					return fmt.Errorf("failed to expire OTP %s: %w", o.ID, err)
				}
			case o.Code == code && !matched:
				if err := tx.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusConsumed); err != nil {
					return fmt.Errorf("failed to consume OTP %s: %w", o.ID, err)
				}
				matched = true
				ghostCode = o.GhostCode
				rec = o
				rec.Status = domain.StatusConsumed
			}
		}
		return nil
	})
	if err != nil {
		return "", domain.OneTimePassword{}, err
	}

	if !matched {
		return "", domain.OneTimePassword{}, ErrInvalidCode
	}
	return ghostCode, rec, nil
}

// CompleteHandshake resolves the two-phase confirmation. Within one
// transaction it scans the CONSUMED records for the record's owner and
// purpose: the first ghost-code match transitions to COMPLETED, after which
// the same queried set is re-walked and every entry that is not COMPLETED is
// forced to INVALIDATED — including records consumed by concurrent
// validations. Any half-used OTP invalidates the rest; at most one record
// per owner and purpose ever reaches COMPLETED in a cycle. When no ghost
// code matches the transaction rolls back and the CONSUMED set is left
// untouched, eligible for a later attempt.
func (s *OTPService) CompleteHandshake(ctx context.Context, ghostCode string, rec domain.OneTimePassword) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		otps, err := tx.OneTimePasswords().ListOTPsByStatus(ctx, rec.UserID, rec.Purpose, domain.StatusConsumed)
		if err != nil {
			return fmt.Errorf("failed to list consumed OTPs: %w", err)
		}

		matched := false
		for i := range otps {
			if otps[i].GhostCode == ghostCode && !matched {
				if err := tx.OneTimePasswords().UpdateOTPStatus(ctx, otps[i].ID, domain.StatusCompleted); err != nil {
					return fmt.Errorf("failed to complete OTP %s: %w", otps[i].ID, err)
				}
				otps[i].Status = domain.StatusCompleted
				matched = true
			}
		}

		if !matched {
			// Rolls back; no state change on a failed handshake.
			return ErrInvalidGhostCode
		}

		for _, o := range otps {
			if o.Status == domain.StatusCompleted {
				continue
			}
			if err := tx.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusInvalidated); err != nil {
				return fmt.Errorf("failed to invalidate OTP %s: %w", o.ID, err)
			}
		}
		return nil
	})
}
