package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bazaar-backend/internal/model"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID, including add-ons.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs, including add-ons.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// BusinessRepository defines the interface for business data access operations.
type BusinessRepository interface {
	// GetByID retrieves a single business by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error)

	// GetByIDs retrieves multiple businesses by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Business, error)
}

// DriverRepository defines the interface for driver data access operations.
type DriverRepository interface {
	// GetByID retrieves a single driver by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Driver, error)
}

// SubscriptionRepository defines the interface for subscription lookups.
type SubscriptionRepository interface {
	// HasActive reports whether the user holds an active, unexpired
	// subscription at the given instant.
	HasActive(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
// Status changes go through compare-and-swap methods so the store enforces
// the transition the service already validated; a false return means the
// order moved concurrently.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// A duplicate order number surfaces as a unique violation; callers
	// retry with an incremented counter.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// SetQRToken attaches a pickup token to the order within the transaction.
	SetQRToken(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, token string) error

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetItems retrieves the items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// CountForDate counts orders created on the given UTC date. Seeds the
	// date-scoped order number counter.
	CountForDate(ctx context.Context, day time.Time) (int, error)

	// TransitionStatus moves an order from one status to another.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// AssignDriver moves an order between statuses and sets the driver.
	AssignDriver(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, driverID uuid.UUID) (bool, error)

	// ClearDriver moves an order between statuses and clears the driver.
	ClearDriver(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// MarkDelivered completes a delivery, recording the delivery time.
	MarkDelivered(ctx context.Context, id uuid.UUID, from model.OrderStatus, deliveredAt time.Time) (bool, error)

	// CompletePickup completes a pickup order from the preparing status.
	CompletePickup(ctx context.Context, id uuid.UUID) (bool, error)

	// TransitionPaymentStatus moves an order's payment status from one
	// state to another, reporting whether the order was in the expected
	// state. Concurrent settlement attempts race for a single winner.
	TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to model.PaymentStatus) (bool, error)

	// SetPaymentStatus updates the payment status of an order.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error

	// ListByStatus returns orders currently in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error)
}
