package service

import (
	"context"
	"errors"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
)

// Action configures one OTP-gated account action. Behavior selection is
// explicit configuration rather than implicit handler state: the purpose
// chooses the record set and mail template, and RequireVerifiedProfile gates
// the whole flow on a verified email address.
type Action struct {
	Purpose                domain.Purpose
	RequireVerifiedProfile bool
}

// Request is the transport-agnostic three-verb request shape. Exactly one of
// Initiate, Validate or Complete must be set.
type Request struct {
	Initiate bool
	Validate bool
	Complete bool

	Code      string // the delivered 6-digit code (validate)
	OTPID     string // record id returned by validate (complete)
	GhostCode string // ghost code returned by validate (complete)
}

// Result is the success response shape. GhostCode and OTPID are only
// populated by the validate verb — the single point where the ghost code
// leaves the server.
type Result struct {
	Message   string
	OTPID     string
	GhostCode string
}

// CompleteFunc is the action-specific callback invoked once the ghost-code
// handshake succeeds. It returns the user-facing success message.
type CompleteFunc func(ctx context.Context, user domain.User) (string, error)

// GatewayService dispatches the initiate/validate/complete verbs into the
// OTP engine. Callers resolve the acting user first — from the bearer token
// for the authenticated flow, or by email lookup for the public flow — and
// supply the completion callback for their action.
type GatewayService struct {
	Store  store.Store
	Engine *OTPService
}

// Dispatch runs one verb of the protocol. Client errors pass through
// untouched; everything else is wrapped into an opaque internal error.
func (g *GatewayService) Dispatch(ctx context.Context, action Action, user domain.User, req Request, complete CompleteFunc) (Result, error) {
	verbs := 0
	for _, v := range []bool{req.Initiate, req.Validate, req.Complete} {
		if v {
			verbs++
		}
	}
	switch {
	case verbs == 0:
		return Result{}, ErrNoMode
	case verbs > 1:
		return Result{}, ErrOnlyOneMode
	}

	if action.RequireVerifiedProfile && !user.EmailVerified() {
		return Result{}, ErrUnverifiedEmail
	}

	switch {
	case req.Initiate:
		return g.initiate(ctx, action, user)
	case req.Validate:
		return g.validate(ctx, action, user, req)
	default:
		return g.complete(ctx, action, user, req, complete)
	}
}

func (g *GatewayService) initiate(ctx context.Context, action Action, user domain.User) (Result, error) {
	// A delivery failure after hand-off is recorded on the ticket, not
	// returned; the caller is told to check their email either way and a
	// fresh initiate mints a new code.
	if _, err := g.Engine.Create(ctx, user, action.Purpose); err != nil {
		return Result{}, wrapServer(err)
	}
	return Result{Message: "OTP sent to your email."}, nil
}

func (g *GatewayService) validate(ctx context.Context, action Action, user domain.User, req Request) (Result, error) {
	if req.Code == "" {
		return Result{}, ErrCodeRequired
	}

	ghostCode, rec, err := g.Engine.Validate(ctx, req.Code, user.ID, action.Purpose)
	if err != nil {
		return Result{}, wrapServer(err)
	}

	return Result{
		Message:   "OTP validated.",
		OTPID:     rec.ID,
		GhostCode: ghostCode,
	}, nil
}

func (g *GatewayService) complete(ctx context.Context, action Action, user domain.User, req Request, complete CompleteFunc) (Result, error) {
	if req.OTPID == "" || req.GhostCode == "" {
		return Result{}, ErrHandshakeInputs
	}

	rec, err := g.Store.OneTimePasswords().GetOTPByID(ctx, req.OTPID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrInvalidCode
		}
		return Result{}, wrapServer(err)
	}

	// The record must belong to the acting user and this action; a ghost
	// code is never valid across owners or purposes.
	if rec.UserID != user.ID || rec.Purpose != action.Purpose {
		return Result{}, ErrInvalidCode
	}

	if err := g.Engine.CompleteHandshake(ctx, req.GhostCode, rec); err != nil {
		return Result{}, wrapServer(err)
	}

	msg, err := complete(ctx, user)
	if err != nil {
		return Result{}, wrapServer(err)
	}
	return Result{Message: msg}, nil
}
