package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
	"github.com/isuryanarayanan/observable-services/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func insertUser(t *testing.T, st *Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     "tester",
		PasswordHash: "argon2:placeholder",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func insertOTP(t *testing.T, st store.Store, userID string, status domain.Status, code, ghost string) domain.OneTimePassword {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	o := domain.OneTimePassword{
		ID:           idx.New().String(),
		UserID:       userID,
		Purpose:      domain.PurposeEmailVerification,
		Status:       status,
		Code:         code,
		GhostCode:    ghost,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.DefaultExpiryWindow),
		ExpiryWindow: domain.DefaultExpiryWindow,
	}
	require.NoError(t, st.OneTimePasswords().CreateOTP(context.Background(), o))
	return o
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")

	byID, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Nil(t, byID.EmailVerifiedAt)

	byEmail, err := st.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	insertUser(t, st, "alice@example.com")

	dup := domain.User{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	err := st.Users().CreateUser(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersUpdates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")

	require.NoError(t, st.Users().UpdatePasswordHash(ctx, u.ID, "argon2:new"))
	require.NoError(t, st.Users().MarkEmailVerified(ctx, u.ID))

	updated, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "argon2:new", updated.PasswordHash)
	require.NotNil(t, updated.EmailVerifiedAt)

	require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
	require.ErrorIs(t, st.Users().MarkEmailVerified(ctx, "missing"), store.ErrNotFound)
}

func TestOTPsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")
	o := insertOTP(t, st, u.ID, domain.StatusIdle, "111111", "222222")

	got, err := st.OneTimePasswords().GetOTPByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.Code, got.Code)
	require.Equal(t, o.GhostCode, got.GhostCode)
	require.Equal(t, domain.StatusIdle, got.Status)
	require.Equal(t, domain.DefaultExpiryWindow, got.ExpiryWindow)

	_, err = st.OneTimePasswords().GetOTPByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestOTPsUniqueCodes(t *testing.T) {
	st := newTestStore(t)
	u := insertUser(t, st, "alice@example.com")

	insertOTP(t, st, u.ID, domain.StatusIdle, "111111", "222222")

	dupCode := domain.OneTimePassword{
		ID: idx.New().String(), UserID: u.ID,
		Purpose: domain.PurposeEmailVerification, Status: domain.StatusIdle,
		Code: "111111", GhostCode: "333333",
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute),
		ExpiryWindow: domain.DefaultExpiryWindow,
	}
	err := st.OneTimePasswords().CreateOTP(context.Background(), dupCode)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	dupGhost := dupCode
	dupGhost.ID = idx.New().String()
	dupGhost.Code = "444444"
	dupGhost.GhostCode = "222222"
	err = st.OneTimePasswords().CreateOTP(context.Background(), dupGhost)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestOTPsListByStatus(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	alice := insertUser(t, st, "alice@example.com")
	bob := insertUser(t, st, "bob@example.com")

	var delivered []string
	for i := 0; i < 3; i++ {
		o := insertOTP(t, st, alice.ID, domain.StatusDelivered,
			fmt.Sprintf("10%04d", i), fmt.Sprintf("20%04d", i))
		delivered = append(delivered, o.ID)
	}
	insertOTP(t, st, alice.ID, domain.StatusConsumed, "300000", "400000")
	insertOTP(t, st, bob.ID, domain.StatusDelivered, "500000", "600000")

	got, err := st.OneTimePasswords().ListOTPsByStatus(ctx, alice.ID,
		domain.PurposeEmailVerification, domain.StatusDelivered)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Oldest first; equal timestamps fall back to id order, and ULIDs of
	// the same batch sort by creation order.
	for i, o := range got {
		require.Equal(t, delivered[i], o.ID)
		require.Equal(t, alice.ID, o.UserID)
		require.Equal(t, domain.StatusDelivered, o.Status)
	}

	none, err := st.OneTimePasswords().ListOTPsByStatus(ctx, alice.ID,
		domain.PurposePasswordReset, domain.StatusDelivered)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestOTPsStatusTransitions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")
	o := insertOTP(t, st, u.ID, domain.StatusIdle, "111111", "222222")

	require.NoError(t, st.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusSent))

	deadline := time.Now().UTC().Truncate(time.Second).Add(10 * time.Minute)
	require.NoError(t, st.OneTimePasswords().MarkOTPDelivered(ctx, o.ID, deadline))

	got, err := st.OneTimePasswords().GetOTPByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, got.Status)
	require.True(t, got.ExpiresAt.Equal(deadline), "expires_at %v, want %v", got.ExpiresAt, deadline)

	require.ErrorIs(t,
		st.OneTimePasswords().UpdateOTPStatus(ctx, "missing", domain.StatusFailed),
		store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")
	o := insertOTP(t, st, u.ID, domain.StatusDelivered, "111111", "222222")

	boom := fmt.Errorf("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusConsumed); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := st.OneTimePasswords().GetOTPByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, got.Status)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")
	o := insertOTP(t, st, u.ID, domain.StatusDelivered, "111111", "222222")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		return tx.OneTimePasswords().UpdateOTPStatus(ctx, o.ID, domain.StatusConsumed)
	})
	require.NoError(t, err)

	got, err := st.OneTimePasswords().GetOTPByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusConsumed, got.Status)
}

func TestCountOTPs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := insertUser(t, st, "alice@example.com")
	insertOTP(t, st, u.ID, domain.StatusIdle, "111111", "222222")
	insertOTP(t, st, u.ID, domain.StatusIdle, "333333", "444444")

	n, err := st.OneTimePasswords().CountOTPs(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
