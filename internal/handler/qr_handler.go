package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/qrcode"
)

// QRHandler handles QR token validation and consumption requests.
type QRHandler struct {
	issuer *qrcode.Issuer
	logger zerolog.Logger
}

// NewQRHandler creates a new QR handler.
func NewQRHandler(issuer *qrcode.Issuer, logger zerolog.Logger) *QRHandler {
	return &QRHandler{
		issuer: issuer,
		logger: logger.With().Str("handler", "qr").Logger(),
	}
}

// Validate handles GET /api/qr/{token} requests. Validation is read-only
// and never marks a token used.
func (h *QRHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "token is required", h.logger)
		return
	}

	code, err := h.issuer.Validate(r.Context(), token)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// scanRequest is the input for a QR scan.
type scanRequest struct {
	Role string `json:"role"`
}

// Scan handles POST /api/qr/{token}/scan requests: it validates the token,
// runs the type-specific handler and marks single-use tokens consumed.
func (h *QRHandler) Scan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "token is required", h.logger)
		return
	}

	var req scanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
			return
		}
	}

	code, err := h.issuer.Consume(r.Context(), token, qrcode.ScannerContext{
		ActorID: actor,
		Role:    req.Role,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, code)
}
