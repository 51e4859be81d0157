package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/points"
)

// PointsHandler handles loyalty points balance, history and redemption
// requests.
type PointsHandler struct {
	ledger *points.Ledger
	logger zerolog.Logger
}

// NewPointsHandler creates a new points handler.
func NewPointsHandler(ledger *points.Ledger, logger zerolog.Logger) *PointsHandler {
	return &PointsHandler{
		ledger: ledger,
		logger: logger.With().Str("handler", "points").Logger(),
	}
}

// Balance handles GET /api/points requests.
func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  userID,
		"balance": balance,
	})
}

// History handles GET /api/points/history requests.
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	limit, offset := pagination(r)
	entries, err := h.ledger.History(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// redeemRequest is the input for a points redemption.
type redeemRequest struct {
	Points int `json:"points"`
}

// Redeem handles POST /api/points/redeem requests.
func (h *PointsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	entry, err := h.ledger.Redeem(r.Context(), userID, req.Points)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
