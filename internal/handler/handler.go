package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps service-layer errors onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var transition *model.IllegalTransitionError
	if errors.As(err, &transition) {
		writeError(w, http.StatusConflict, model.ErrCodeIllegalTransition, transition.Error(), logger)
		return
	}

	var domain *model.DomainError
	if errors.As(err, &domain) {
		writeError(w, statusForCode(domain.Code), domain.Code, domain.Message, logger)
		return
	}

	logger.Error().Err(err).Msg("unhandled service error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInsufficientBalance, model.ErrCodeInsufficientPoints:
		return http.StatusPaymentRequired
	case model.ErrCodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// actorID extracts the authenticated actor's identity. Identity is
// established upstream; the handler trusts the X-Actor-ID header set by
// the gateway.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		return uuid.Nil, errors.New("missing actor identity")
	}
	return uuid.Parse(raw)
}

// pathUUID parses a UUID path segment.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}
