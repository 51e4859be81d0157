package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bazaar-backend/internal/model"
)

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, req *model.CreateOrderRequest) (*model.OrderDetail, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, orderID, requesterID uuid.UUID) (*model.OrderDetail, error) {
	args := m.Called(ctx, orderID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderID, requesterID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, orderID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Accept(ctx context.Context, orderID, businessID uuid.UUID) error {
	args := m.Called(ctx, orderID, businessID)
	return args.Error(0)
}

func (m *MockOrderService) StartPreparing(ctx context.Context, orderID, businessID uuid.UUID) error {
	args := m.Called(ctx, orderID, businessID)
	return args.Error(0)
}

func (m *MockOrderService) MarkReady(ctx context.Context, orderID, businessID uuid.UUID) error {
	args := m.Called(ctx, orderID, businessID)
	return args.Error(0)
}

func (m *MockOrderService) DriverAccept(ctx context.Context, orderID, driverID uuid.UUID) error {
	args := m.Called(ctx, orderID, driverID)
	return args.Error(0)
}

func (m *MockOrderService) DriverReject(ctx context.Context, orderID, driverID uuid.UUID) error {
	args := m.Called(ctx, orderID, driverID)
	return args.Error(0)
}

func (m *MockOrderService) CompleteDelivery(ctx context.Context, orderID, driverID uuid.UUID) error {
	args := m.Called(ctx, orderID, driverID)
	return args.Error(0)
}

func (m *MockOrderService) ListAwaitingDriver(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func decodeErrorResponse(t *testing.T, body *bytes.Buffer) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()
	actor := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		detail := &model.OrderDetail{Order: model.Order{ID: uuid.New(), OrderNumber: "ORD-20250314-0001"}}
		mockService.On("Create", mock.Anything, mock.MatchedBy(func(req *model.CreateOrderRequest) bool {
			return req.UserID == actor && len(req.Items) == 1
		})).Return(detail, nil)

		body := `{"items":[{"productId":"P001","quantity":2}],"orderType":"pickup","paymentMethod":"cash"}`
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
		req.Header.Set("X-Actor-ID", actor.String())
		w := httptest.NewRecorder()

		h.Create(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.OrderDetail
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "ORD-20250314-0001", got.OrderNumber)
		mockService.AssertExpectations(t)
	})

	t.Run("Missing actor identity", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()

		h.Create(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, model.ErrCodeUnauthorised, decodeErrorResponse(t, w.Body).Error)
		mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{not json`))
		req.Header.Set("X-Actor-ID", actor.String())
		w := httptest.NewRecorder()

		h.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeInvalidJSON, decodeErrorResponse(t, w.Body).Error)
	})

	t.Run("Validation error from service", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("Create", mock.Anything, mock.Anything).Return(nil, model.ErrEmptyItems)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{"items":[]}`))
		req.Header.Set("X-Actor-ID", actor.String())
		w := httptest.NewRecorder()

		h.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeValidation, decodeErrorResponse(t, w.Body).Error)
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	actor := uuid.New()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		detail := &model.OrderDetail{Order: model.Order{ID: orderID, UserID: actor}}
		mockService.On("GetByID", mock.Anything, orderID, actor).Return(detail, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String(), nil)
		req.Header.Set("X-Actor-ID", actor.String())
		req.SetPathValue("id", orderID.String())
		w := httptest.NewRecorder()

		h.GetByID(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Invalid order ID", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
		req.Header.Set("X-Actor-ID", actor.String())
		req.SetPathValue("id", "not-a-uuid")
		w := httptest.NewRecorder()

		h.GetByID(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Forbidden for non-owner", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("GetByID", mock.Anything, orderID, actor).Return(nil, model.ErrNotOwner)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String(), nil)
		req.Header.Set("X-Actor-ID", actor.String())
		req.SetPathValue("id", orderID.String())
		w := httptest.NewRecorder()

		h.GetByID(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestOrderHandler_Transitions(t *testing.T) {
	logger := zerolog.Nop()
	actor := uuid.New()
	orderID := uuid.New()

	newRequest := func(path string) (*httptest.ResponseRecorder, *http.Request) {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Actor-ID", actor.String())
		req.SetPathValue("id", orderID.String())
		return httptest.NewRecorder(), req
	}

	t.Run("Cancel success", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("Cancel", mock.Anything, orderID, actor).Return(&model.Order{ID: orderID, Status: model.StatusCancelled}, nil)

		w, req := newRequest("/api/orders/" + orderID.String() + "/cancel")
		h.Cancel(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Illegal transition maps to conflict", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("Accept", mock.Anything, orderID, actor).Return(&model.IllegalTransitionError{
			From: model.StatusCompleted, To: model.StatusAccepted,
		})

		w, req := newRequest("/api/orders/" + orderID.String() + "/accept")
		h.Accept(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, model.ErrCodeIllegalTransition, decodeErrorResponse(t, w.Body).Error)
	})

	t.Run("Driver accept", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("DriverAccept", mock.Anything, orderID, actor).Return(nil)

		w, req := newRequest("/api/orders/" + orderID.String() + "/driver/accept")
		h.DriverAccept(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Complete delivery by wrong driver", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, logger)

		mockService.On("CompleteDelivery", mock.Anything, orderID, actor).Return(model.ErrNotAssignedDriver)

		w, req := newRequest("/api/orders/" + orderID.String() + "/deliver")
		h.CompleteDelivery(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestOrderHandler_ListAwaitingDriver(t *testing.T) {
	logger := zerolog.Nop()
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, logger)

	waiting := []model.Order{{ID: uuid.New(), Status: model.StatusWaitingDriver}}
	mockService.On("ListAwaitingDriver", mock.Anything).Return(waiting, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/awaiting-driver", nil)
	req.Header.Set("X-Actor-ID", uuid.New().String())
	w := httptest.NewRecorder()

	h.ListAwaitingDriver(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []model.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 1)
}
