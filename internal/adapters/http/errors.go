package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/kiosk/pkg/domain"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error             string           `json:"error"`
	Message           string           `json:"message"`
	AvailableTriggers []domain.Trigger `json:"available_triggers,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTrigger):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownDepartment), errors.Is(err, domain.ErrMissingDepartment):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Message: domain.UserMessage(err)}

	var invalid *domain.InvalidTriggerError
	if errors.As(err, &invalid) {
		resp.AvailableTriggers = invalid.Available
	}
	if code == http.StatusInternalServerError {
		logger.Error("Request failed", "err", err)
		resp.Error = http.StatusText(code)
	}
	writeJSON(w, logger, code, resp)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}

func badRequest(w http.ResponseWriter, logger *slog.Logger, msg string) {
	writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: msg, Message: msg})
}
