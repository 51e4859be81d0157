package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeIllegalTransition   = "ILLEGAL_TRANSITION"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientPoints  = "INSUFFICIENT_POINTS"
	ErrCodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business-logic error with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyItems           = NewDomainError(ErrCodeValidation, "Order must contain at least one item")
	ErrInvalidQuantity      = NewDomainError(ErrCodeValidation, "Quantity must be greater than zero")
	ErrInvalidOrderType     = NewDomainError(ErrCodeValidation, "Order type must be delivery or pickup")
	ErrInvalidPayment       = NewDomainError(ErrCodeValidation, "Payment method must be cash or online")
	ErrAddressRequired      = NewDomainError(ErrCodeValidation, "Delivery orders require an address with coordinates")
	ErrInvalidAmount        = NewDomainError(ErrCodeValidation, "Amount must be greater than zero")
	ErrInvalidRedemption    = NewDomainError(ErrCodeValidation, "Points redemption outside allowed bounds")
	ErrProductNotFound      = NewDomainError(ErrCodeNotFound, "One or more products not found")
	ErrProductUnavailable   = NewDomainError(ErrCodeValidation, "One or more products are unavailable")
	ErrBusinessInactive     = NewDomainError(ErrCodeValidation, "One or more businesses are inactive")
	ErrOrderNotFound        = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrWalletNotFound       = NewDomainError(ErrCodeNotFound, "Wallet not found")
	ErrNotOwner             = NewDomainError(ErrCodeForbidden, "Actor does not own this resource")
	ErrNotAssignedDriver    = NewDomainError(ErrCodeForbidden, "Driver is not assigned to this order")
	ErrInsufficientBalance  = NewDomainError(ErrCodeInsufficientBalance, "Wallet balance is insufficient")
	ErrInsufficientPoints   = NewDomainError(ErrCodeInsufficientPoints, "Points balance is insufficient")
	ErrQRNotFound           = NewDomainError(ErrCodeNotFound, "QR token not found")
	ErrQRExpired            = NewDomainError(ErrCodeValidation, "QR token has expired")
	ErrQRAlreadyUsed        = NewDomainError(ErrCodeValidation, "QR token has already been used")
	ErrOrderAlreadyPaid     = NewDomainError(ErrCodeValidation, "Order is already paid")
	ErrPaymentFailed        = NewDomainError(ErrCodeExternalService, "Payment gateway rejected the charge")
	ErrOrderNumberExhausted = NewDomainError(ErrCodeInternalError, "Could not allocate a unique order number")
)

// IllegalTransitionError indicates a requested order status change is not
// permitted from the current status.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition from %s to %s", e.From, e.To)
}
