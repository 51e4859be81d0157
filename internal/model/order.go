package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderType distinguishes delivery orders from pickup orders.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// PaymentMethod is how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// PaymentStatus tracks the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending       OrderStatus = "pending"
	StatusAccepted      OrderStatus = "accepted"
	StatusPreparing     OrderStatus = "preparing"
	StatusWaitingDriver OrderStatus = "waiting_driver"
	StatusInDelivery    OrderStatus = "in_delivery"
	StatusCompleted     OrderStatus = "completed"
	StatusCancelled     OrderStatus = "cancelled"
)

// deliveryTransitions is the legal transition table for delivery orders.
// waiting_driver -> preparing covers driver rejection, which returns the
// order to the pickup-ready pool.
var deliveryTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:       {StatusAccepted, StatusCancelled},
	StatusAccepted:      {StatusPreparing, StatusCancelled},
	StatusPreparing:     {StatusWaitingDriver},
	StatusWaitingDriver: {StatusInDelivery, StatusPreparing},
	StatusInDelivery:    {StatusCompleted},
}

// pickupTransitions is the legal transition table for pickup orders.
// Pickup orders skip driver assignment entirely: a preparing order is
// completed when its pickup code is scanned at the counter.
var pickupTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusCompleted},
}

// CanTransition reports whether an order of the given type may move from
// one status to another. Terminal statuses (completed, cancelled) have no
// outgoing transitions.
func CanTransition(orderType OrderType, from, to OrderStatus) bool {
	table := deliveryTransitions
	if orderType == OrderTypePickup {
		table = pickupTransitions
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Address is a structured delivery destination with coordinates.
type Address struct {
	Line      string  `json:"line" db:"address_line"`
	City      string  `json:"city" db:"address_city"`
	Latitude  float64 `json:"latitude" db:"address_lat"`
	Longitude float64 `json:"longitude" db:"address_lon"`
}

// Order is the root aggregate of the marketplace. All monetary fields are
// integer minor currency units. FinalAmount is always recomputed from its
// components, never assigned independently.
type Order struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	OrderNumber     string        `json:"orderNumber" db:"order_number"`
	UserID          uuid.UUID     `json:"userId" db:"user_id"`
	DriverID        *uuid.UUID    `json:"driverId,omitempty" db:"driver_id"`
	Type            OrderType     `json:"orderType" db:"order_type"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" db:"payment_status"`
	Status          OrderStatus   `json:"status" db:"status"`
	DeliveryAddress *Address      `json:"deliveryAddress,omitempty"`
	TotalAmount     int64         `json:"totalAmount" db:"total_amount"`
	DiscountAmount  int64         `json:"discountAmount" db:"discount_amount"`
	PlatformFee     int64         `json:"platformFee" db:"platform_fee"`
	DeliveryFee     int64         `json:"deliveryFee" db:"delivery_fee"`
	FinalAmount     int64         `json:"finalAmount" db:"final_amount"`
	QRToken         *string       `json:"qrToken,omitempty" db:"qr_token"`
	DeliveredAt     *time.Time    `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a denormalized snapshot of a product at order-creation time.
// Later price changes to the product never affect the stored item.
type OrderItem struct {
	ID         uuid.UUID    `json:"-" db:"id"`
	OrderID    uuid.UUID    `json:"-" db:"order_id"`
	ProductID  string       `json:"productId" db:"product_id"`
	BusinessID uuid.UUID    `json:"businessId" db:"business_id"`
	Name       string       `json:"name" db:"name"`
	Quantity   int          `json:"quantity" db:"quantity"`
	UnitPrice  int64        `json:"unitPrice" db:"unit_price"`
	TotalPrice int64        `json:"totalPrice" db:"total_price"`
	AddOns     []OrderAddOn `json:"addOns,omitempty"`
}

// OrderAddOn is a selected product add-on, snapshotted with the item.
type OrderAddOn struct {
	Name  string `json:"name" db:"name"`
	Price int64  `json:"price" db:"price"`
}

// CreateOrderRequest is the input for placing an order.
type CreateOrderRequest struct {
	UserID          uuid.UUID          `json:"-"`
	Items           []OrderItemRequest `json:"items"`
	Type            OrderType          `json:"orderType"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod"`
	DeliveryAddress *Address           `json:"deliveryAddress,omitempty"`
}

// OrderItemRequest is a single requested line item.
type OrderItemRequest struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	AddOns    []string `json:"addOns,omitempty"`
}

// BusinessSummary is the slice of business data embedded in an order view.
type BusinessSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DriverSummary is the slice of driver data embedded in an order view.
type DriverSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

// OrderDetail is the denormalized read view of a single order. Businesses
// are listed in the suggested pickup sequence for multi-establishment
// deliveries.
type OrderDetail struct {
	Order            `json:"order"`
	Items            []OrderItem       `json:"items"`
	Businesses       []BusinessSummary `json:"businesses"`
	Driver           *DriverSummary    `json:"driver,omitempty"`
	EstimatedMinutes int               `json:"estimatedMinutes,omitempty"`
}
