package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/service"
	"github.com/isuryanarayanan/observable-services/pkg/httpx"
	"github.com/isuryanarayanan/observable-services/pkg/slogx"
)

// VerifyEmailHandler drives the authenticated email-verification flow. The
// acting user comes from the bearer token; completion marks their email
// verified.
type VerifyEmailHandler struct {
	Gateway     *service.GatewayService
	UserService *service.UserService
}

var verifyEmailAction = service.Action{
	Purpose: domain.PurposeEmailVerification,
	// The whole point of this action is an unverified address, so the
	// verified-profile gate stays off.
	RequireVerifiedProfile: false,
}

// ServeHTTP handles POST /v1/verify-email.
//
// Three-step protocol:
//  1. {"initiate": true}                                     -> code emailed
//  2. {"validate": true, "code": "..."}                      -> otp_id + ghost_code
//  3. {"complete": true, "otp_id": "...", "ghost_code": "..."} -> email verified
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := ctx.Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token",
			"the access token is missing or invalid")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.Gateway.Dispatch(ctx, verifyEmailAction, user, req.gatewayRequest(),
		func(ctx context.Context, user domain.User) (string, error) {
			if err := h.UserService.MarkEmailVerified(ctx, user.ID); err != nil {
				return "", err
			}
			return "email verified successfully", nil
		})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResult(w, res)
}
