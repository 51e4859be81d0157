package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is the ISO 4217 code applied to new wallets and gateway
// charges.
const DefaultCurrency = "COP"

// Wallet holds a user's monetary balance in integer minor currency units.
// The balance is mutated only through the wallet ledger; no other component
// writes it directly.
type Wallet struct {
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	Currency  string    `json:"currency" db:"currency"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TransactionType classifies a monetary movement.
type TransactionType string

const (
	TransactionPayment  TransactionType = "payment"
	TransactionRefund   TransactionType = "refund"
	TransactionTopUp    TransactionType = "wallet_topup"
	TransactionDiscount TransactionType = "discount"
	TransactionEarnings TransactionType = "earnings"
)

// ReferenceType names the entity a transaction refers to.
type ReferenceType string

const (
	ReferenceOrder       ReferenceType = "order"
	ReferenceReservation ReferenceType = "reservation"
	ReferenceWallet      ReferenceType = "wallet"
)

// TransactionStatus tracks the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is an append-only record of a monetary movement. Amount is
// signed: negative is a debit from the user's perspective. The sum of all
// completed wallet-method transactions for a user must equal the wallet
// balance.
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	UserID        uuid.UUID         `json:"userId" db:"user_id"`
	Type          TransactionType   `json:"type" db:"transaction_type"`
	ReferenceType ReferenceType     `json:"referenceType" db:"reference_type"`
	ReferenceID   string            `json:"referenceId" db:"reference_id"`
	Amount        int64             `json:"amount" db:"amount"`
	PaymentMethod PaymentMethod     `json:"paymentMethod" db:"payment_method"`
	Status        TransactionStatus `json:"status" db:"status"`
	Description   string            `json:"description" db:"description"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
}
