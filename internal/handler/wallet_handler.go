package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/service"
	"bazaar-backend/internal/wallet"
)

// WalletHandler handles wallet balance, history, top-up and order payment
// requests.
type WalletHandler struct {
	ledger   *wallet.Ledger
	payments service.PaymentService
	logger   zerolog.Logger
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(ledger *wallet.Ledger, payments service.PaymentService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger:   ledger,
		payments: payments,
		logger:   logger.With().Str("handler", "wallet").Logger(),
	}
}

// Balance handles GET /api/wallet requests.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
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
		"userId":   userID,
		"balance":  balance,
		"currency": model.DefaultCurrency,
	})
}

// History handles GET /api/wallet/transactions requests.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	limit, offset := pagination(r)
	txns, err := h.ledger.History(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, txns)
}

// topUpRequest is the input for a wallet top-up.
type topUpRequest struct {
	Amount int64 `json:"amount"`
}

// TopUp handles POST /api/wallet/topup requests.
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	txn, err := h.payments.TopUpWallet(r.Context(), userID, req.Amount)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// payOrderRequest is the input for settling an order.
type payOrderRequest struct {
	UseWallet bool `json:"useWallet"`
}

// PayOrder handles POST /api/orders/{id}/pay requests.
func (h *WalletHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req payOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
			return
		}
	}

	result, err := h.payments.PayOrder(r.Context(), orderID, userID, req.UseWallet)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// pagination reads limit/offset query parameters with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
