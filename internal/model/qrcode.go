package model

import "time"

// QRType classifies an issued QR token.
type QRType string

const (
	QRDiscount     QRType = "discount"
	QRPayment      QRType = "payment"
	QRReservation  QRType = "reservation"
	QROrder        QRType = "order"
	QRDriverPickup QRType = "driver_pickup"
)

// SingleUse reports whether tokens of this type may be consumed at most
// once. Reservation tokens can be re-presented at the door, and a driver
// handover token is scanned once per establishment on a multi-business
// run; every other type is burned on first scan.
func (t QRType) SingleUse() bool {
	return t != QRReservation && t != QRDriverPickup
}

// QRCode is an opaque token bound to a (type, reference) pair.
type QRCode struct {
	Token       string            `json:"token" db:"token"`
	Type        QRType            `json:"type" db:"qr_type"`
	ReferenceID string            `json:"referenceId" db:"reference_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ExpiresAt   time.Time         `json:"expiresAt" db:"expires_at"`
	IsUsed      bool              `json:"isUsed" db:"is_used"`
	UsedAt      *time.Time        `json:"usedAt,omitempty" db:"used_at"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
}
