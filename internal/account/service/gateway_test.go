package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/notify"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*GatewayService, store.Store, *notify.MemoryNotifier, *testClock) {
	t.Helper()

	svc, st, notifier, clock := newTestEngine(t)
	gw := &GatewayService{Store: st, Engine: svc}
	return gw, st, notifier, clock
}

func noopComplete(ctx context.Context, user domain.User) (string, error) {
	return "done", nil
}

func TestDispatchRequiresExactlyOneVerb(t *testing.T) {
	ctx := context.Background()
	gw, st, _, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, user, Request{}, noopComplete)
	require.ErrorIs(t, err, ErrNoMode)

	_, err = gw.Dispatch(ctx, action, user, Request{Initiate: true, Validate: true}, noopComplete)
	require.ErrorIs(t, err, ErrOnlyOneMode)

	_, err = gw.Dispatch(ctx, action, user, Request{Initiate: true, Validate: true, Complete: true}, noopComplete)
	require.ErrorIs(t, err, ErrOnlyOneMode)

	// The verb check rejects before the engine ever runs.
	count, err := st.OneTimePasswords().CountOTPs(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDispatchVerifiedProfileGate(t *testing.T) {
	ctx := context.Background()
	gw, st, _, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")

	action := Action{
		Purpose:                domain.PurposePasswordReset,
		RequireVerifiedProfile: true,
	}

	_, err := gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.ErrorIs(t, err, ErrUnverifiedEmail)

	verifiedAt := time.Now()
	user.EmailVerifiedAt = &verifiedAt

	_, err = gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
}

func TestDispatchValidateRequiresCode(t *testing.T) {
	ctx := context.Background()
	gw, st, _, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, user, Request{Validate: true}, noopComplete)
	require.ErrorIs(t, err, ErrCodeRequired)
}

func TestDispatchCompleteRequiresHandshakeInputs(t *testing.T) {
	ctx := context.Background()
	gw, st, _, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, user, Request{Complete: true, OTPID: "some-id"}, noopComplete)
	require.ErrorIs(t, err, ErrHandshakeInputs)

	_, err = gw.Dispatch(ctx, action, user, Request{Complete: true, GhostCode: "123456"}, noopComplete)
	require.ErrorIs(t, err, ErrHandshakeInputs)
}

func TestDispatchFullFlow(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	res, err := gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
	require.Equal(t, "OTP sent to your email.", res.Message)
	require.Empty(t, res.GhostCode)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	code := sent[0].Data["code"]
	require.NotEmpty(t, code)

	res, err = gw.Dispatch(ctx, action, user, Request{Validate: true, Code: code}, noopComplete)
	require.NoError(t, err)
	require.Equal(t, "OTP validated.", res.Message)
	require.NotEmpty(t, res.OTPID)
	require.NotEmpty(t, res.GhostCode)

	var completedFor string
	res, err = gw.Dispatch(ctx, action, user,
		Request{Complete: true, OTPID: res.OTPID, GhostCode: res.GhostCode},
		func(ctx context.Context, u domain.User) (string, error) {
			completedFor = u.ID
			return "all set", nil
		})
	require.NoError(t, err)
	require.Equal(t, "all set", res.Message)
	require.Equal(t, user.ID, completedFor)
}

func TestDispatchCompleteUnknownRecord(t *testing.T) {
	ctx := context.Background()
	gw, st, _, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, user,
		Request{Complete: true, OTPID: "no-such-record", GhostCode: "123456"}, noopComplete)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestDispatchCompleteRejectsForeignRecord(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	alice := seedUser(t, st, "alice@example.com")
	bob := seedUser(t, st, "bob@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, alice, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
	code := notifier.Sent()[0].Data["code"]

	res, err := gw.Dispatch(ctx, action, alice, Request{Validate: true, Code: code}, noopComplete)
	require.NoError(t, err)

	// Bob presents Alice's handshake; ownership fails closed.
	_, err = gw.Dispatch(ctx, action, bob,
		Request{Complete: true, OTPID: res.OTPID, GhostCode: res.GhostCode}, noopComplete)
	require.ErrorIs(t, err, ErrInvalidCode)

	stored, err := st.OneTimePasswords().GetOTPByID(ctx, res.OTPID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusConsumed, stored.Status)
}

func TestDispatchCompleteRejectsWrongPurpose(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	verify := Action{Purpose: domain.PurposeEmailVerification}
	reset := Action{Purpose: domain.PurposePasswordReset}

	_, err := gw.Dispatch(ctx, verify, user, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
	code := notifier.Sent()[0].Data["code"]

	res, err := gw.Dispatch(ctx, verify, user, Request{Validate: true, Code: code}, noopComplete)
	require.NoError(t, err)

	_, err = gw.Dispatch(ctx, reset, user,
		Request{Complete: true, OTPID: res.OTPID, GhostCode: res.GhostCode}, noopComplete)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestDispatchCompleteCallbackFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	_, err := gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
	code := notifier.Sent()[0].Data["code"]

	res, err := gw.Dispatch(ctx, action, user, Request{Validate: true, Code: code}, noopComplete)
	require.NoError(t, err)

	_, err = gw.Dispatch(ctx, action, user,
		Request{Complete: true, OTPID: res.OTPID, GhostCode: res.GhostCode},
		func(ctx context.Context, u domain.User) (string, error) {
			return "", fmt.Errorf("downstream update failed")
		})
	require.ErrorIs(t, err, ErrInternal)
	require.False(t, IsClientError(err))
}

func TestDispatchInitiateHandOffFailure(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	notifier.ComposeErr = fmt.Errorf("relay unavailable")

	_, err := gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.ErrorIs(t, err, ErrInternal)
}

func TestDispatchInitiateSendFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	gw, st, notifier, _ := newTestGateway(t)
	user := seedUser(t, st, "alice@example.com")
	action := Action{Purpose: domain.PurposeEmailVerification}

	notifier.SendErr = fmt.Errorf("smtp timeout")

	res, err := gw.Dispatch(ctx, action, user, Request{Initiate: true}, noopComplete)
	require.NoError(t, err)
	require.Equal(t, "OTP sent to your email.", res.Message)
}
