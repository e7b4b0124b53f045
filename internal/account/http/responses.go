package http

import (
	"errors"
	"net/http"

	"github.com/isuryanarayanan/observable-services/internal/account/service"
	"github.com/isuryanarayanan/observable-services/pkg/httpx"
	"github.com/isuryanarayanan/observable-services/pkg/slogx"
)

// actionRequest is the JSON body shared by both OTP-gated flows. Exactly one
// of initiate/validate/complete must be true.
type actionRequest struct {
	Initiate bool `json:"initiate"`
	Validate bool `json:"validate"`
	Complete bool `json:"complete"`

	Code      string `json:"code,omitempty"`
	OTPID     string `json:"otp_id,omitempty"`
	GhostCode string `json:"ghost_code,omitempty"`

	// Public (email-addressed) flow only.
	Email       string `json:"email,omitempty"`
	NewPassword string `json:"new_password,omitempty"`
}

func (r actionRequest) gatewayRequest() service.Request {
	return service.Request{
		Initiate:  r.Initiate,
		Validate:  r.Validate,
		Complete:  r.Complete,
		Code:      r.Code,
		OTPID:     r.OTPID,
		GhostCode: r.GhostCode,
	}
}

// actionResponse is the success body. GhostCode and OTPID only appear on the
// validate verb.
type actionResponse struct {
	Message   string `json:"message"`
	OTPID     string `json:"otp_id,omitempty"`
	GhostCode string `json:"ghost_code,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

func writeResult(w http.ResponseWriter, res service.Result) {
	httpx.WriteJSON(w, http.StatusOK, actionResponse{
		Message:   res.Message,
		OTPID:     res.OTPID,
		GhostCode: res.GhostCode,
	})
}

// writeServiceError maps the service error taxonomy to HTTP: client errors
// surface verbatim as 400, everything else is logged and returned as an
// opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	if service.IsClientError(err) {
		log.Warn("request rejected", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if errors.Is(err, service.ErrDeliveryFailed) {
		log.Error("notification hand-off failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "delivery_error",
			"The verification email could not be sent. Please try again.")
		return
	}

	log.Error("unexpected failure", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error",
		"An error occurred on the server.")
}
