package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/service"
)

// OrderHandler handles order lifecycle HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	var req model.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	req.UserID = userID

	detail, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requesterID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	detail, err := h.service.GetByID(r.Context(), orderID, requesterID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		_, err := h.service.Cancel(r.Context(), orderID, actor)
		return err
	})
}

// Accept handles POST /api/orders/{id}/accept requests from businesses.
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.Accept(r.Context(), orderID, actor)
	})
}

// StartPreparing handles POST /api/orders/{id}/prepare requests.
func (h *OrderHandler) StartPreparing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.StartPreparing(r.Context(), orderID, actor)
	})
}

// MarkReady handles POST /api/orders/{id}/ready requests.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.MarkReady(r.Context(), orderID, actor)
	})
}

// DriverAccept handles POST /api/orders/{id}/driver/accept requests.
func (h *OrderHandler) DriverAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.DriverAccept(r.Context(), orderID, actor)
	})
}

// DriverReject handles POST /api/orders/{id}/driver/reject requests.
func (h *OrderHandler) DriverReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.DriverReject(r.Context(), orderID, actor)
	})
}

// CompleteDelivery handles POST /api/orders/{id}/deliver requests.
func (h *OrderHandler) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) error {
		return h.service.CompleteDelivery(r.Context(), orderID, actor)
	})
}

// ListAwaitingDriver handles GET /api/orders/awaiting-driver requests.
func (h *OrderHandler) ListAwaitingDriver(w http.ResponseWriter, r *http.Request) {
	if _, err := actorID(r); err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	orders, err := h.service.ListAwaitingDriver(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// transition applies the shared plumbing of the status-change endpoints:
// actor extraction, order ID parsing and error mapping.
func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, fn func(orderID, actor uuid.UUID) error) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing or invalid actor identity", h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	if err := fn(orderID, actor); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
