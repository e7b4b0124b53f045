package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
	"github.com/isuryanarayanan/observable-services/pkg/cryptox"
)

// UserService is the identity-store surface the OTP flows need: owner
// resolution plus the two completion actions (verify email, set password).
type UserService struct {
	Store store.Store
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// MarkEmailVerified records a completed email verification.
func (s *UserService) MarkEmailVerified(ctx context.Context, userID string) error {
	if err := s.Store.Users().MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// SetPassword validates and hashes a new password for the user.
func (s *UserService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < cryptox.MinPasswordLength {
		return ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
