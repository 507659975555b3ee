package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes and a stable kind label
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, core.ErrVerificationTimedOut):
		return http.StatusGatewayTimeout, "verification_timed_out"
	case errors.Is(err, core.ErrNoVerificationLinkFound):
		return http.StatusUnprocessableEntity, "no_verification_link_found"
	case errors.Is(err, core.ErrAutomationFailed):
		return http.StatusBadGateway, "automation_failed"
	case errors.Is(err, core.ErrMailboxUnavailable):
		return http.StatusServiceUnavailable, "mailbox_unavailable"
	case errors.Is(err, core.ErrAllProvidersFailed):
		return http.StatusBadGateway, "all_providers_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Info("Request rejected", fields...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	h.writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
