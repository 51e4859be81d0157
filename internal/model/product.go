package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable item in a business catalogue. Price is in integer
// minor currency units.
type Product struct {
	ID         string     `json:"id" db:"id"`
	BusinessID uuid.UUID  `json:"businessId" db:"business_id"`
	Name       string     `json:"name" db:"name"`
	Price      int64      `json:"price" db:"price"`
	Category   string     `json:"category" db:"category"`
	Available  bool       `json:"available" db:"available"`
	AddOns     []AddOn    `json:"addOns,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// AddOn is an optional extra that can be attached to a product.
type AddOn struct {
	ID        string `json:"id" db:"id"`
	ProductID string `json:"-" db:"product_id"`
	Name      string `json:"name" db:"name"`
	Price     int64  `json:"price" db:"price"`
}

// Business is a seller on the marketplace.
type Business struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	Partner   bool      `json:"partner" db:"partner"`
	Latitude  float64   `json:"latitude" db:"lat"`
	Longitude float64   `json:"longitude" db:"lon"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Driver is a courier profile referenced from delivery orders.
type Driver struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Subscription is a user's membership plan. An active qualifying
// subscription waives the delivery fee within the free radius.
type Subscription struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Plan      string    `json:"plan" db:"plan"`
	Active    bool      `json:"active" db:"active"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}
