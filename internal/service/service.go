package service

import (
	"context"

	"github.com/google/uuid"

	"bazaar-backend/internal/model"
)

// ProductService defines operations for catalogue reads.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderService owns the order lifecycle: creation with pricing, guarded
// status transitions, and the side effects each transition triggers.
type OrderService interface {
	// Create validates, prices and persists a new order.
	Create(ctx context.Context, req *model.CreateOrderRequest) (*model.OrderDetail, error)

	// GetByID retrieves the denormalized order view. The requester must be
	// the order owner.
	GetByID(ctx context.Context, orderID, requesterID uuid.UUID) (*model.OrderDetail, error)

	// Cancel cancels an order on behalf of its owner, refunding paid orders.
	Cancel(ctx context.Context, orderID, requesterID uuid.UUID) (*model.Order, error)

	// Accept moves a pending order to accepted on behalf of a business.
	Accept(ctx context.Context, orderID, businessID uuid.UUID) error

	// StartPreparing moves an accepted order to preparing.
	StartPreparing(ctx context.Context, orderID, businessID uuid.UUID) error

	// MarkReady moves a preparing delivery order into the driver pool.
	MarkReady(ctx context.Context, orderID, businessID uuid.UUID) error

	// DriverAccept assigns a driver and starts the delivery.
	DriverAccept(ctx context.Context, orderID, driverID uuid.UUID) error

	// DriverReject returns a waiting order to the preparing pool.
	DriverReject(ctx context.Context, orderID, driverID uuid.UUID) error

	// CompleteDelivery finishes a delivery on behalf of the assigned driver.
	CompleteDelivery(ctx context.Context, orderID, driverID uuid.UUID) error

	// ListAwaitingDriver returns delivery orders waiting for a driver.
	ListAwaitingDriver(ctx context.Context) ([]model.Order, error)
}

// PaymentService applies hybrid wallet plus gateway payments.
type PaymentService interface {
	// PayOrder settles an order, drawing from the wallet first when
	// requested and charging the gateway for the remainder.
	PayOrder(ctx context.Context, orderID, userID uuid.UUID, useWallet bool) (*PaymentResult, error)

	// TopUpWallet charges the gateway and credits the wallet, net of the
	// top-up fee.
	TopUpWallet(ctx context.Context, userID uuid.UUID, amount int64) (*model.Transaction, error)
}

// PaymentResult describes how an order payment was split.
type PaymentResult struct {
	OrderID          uuid.UUID `json:"orderId"`
	WalletDeduction  int64     `json:"walletDeduction"`
	GatewayAmount    int64     `json:"gatewayAmount"`
	GatewayReference string    `json:"gatewayReference,omitempty"`
}
