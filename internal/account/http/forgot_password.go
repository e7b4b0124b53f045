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

// ForgotPasswordHandler drives the public password-reset flow. No bearer
// token is required; the target account is addressed by email and the flow
// itself is OTP-gated. Completion sets the new password.
type ForgotPasswordHandler struct {
	Gateway     *service.GatewayService
	UserService *service.UserService
}

var forgotPasswordAction = service.Action{
	Purpose:                domain.PurposePasswordReset,
	RequireVerifiedProfile: false,
}

// ServeHTTP handles POST /v1/forgot-password.
//
// Three-step protocol; every step carries the account email:
//  1. {"email": "...", "initiate": true}
//  2. {"email": "...", "validate": true, "code": "..."}
//  3. {"email": "...", "complete": true, "otp_id": "...",
//     "ghost_code": "...", "new_password": "..."}
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid request, email is required")
		return
	}

	user, err := h.UserService.GetUserByEmail(ctx, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.Gateway.Dispatch(ctx, forgotPasswordAction, user, req.gatewayRequest(),
		func(ctx context.Context, user domain.User) (string, error) {
			if err := h.UserService.SetPassword(ctx, user.ID, req.NewPassword); err != nil {
				return "", err
			}
			return "Password changed successfully", nil
		})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResult(w, res)
}
