// Package payment defines the external payment gateway contract consumed
// by the payment orchestrator. The real gateway integration lives outside
// this module.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway is the request/response contract of the external payment
// provider. Amounts are integer minor currency units.
type Gateway interface {
	// Charge captures a payment and returns the provider reference.
	Charge(ctx context.Context, amount int64, currency string) (reference string, err error)

	// Refund reverses (part of) a previous charge.
	Refund(ctx context.Context, originalReference string, amount int64) (reference string, err error)
}

// LogGateway is a development gateway that approves every request and logs
// it. Useful locally and in tests of non-payment flows.
type LogGateway struct {
	logger zerolog.Logger
}

// NewLogGateway creates a LogGateway.
func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "log_gateway").Logger()}
}

// Charge implements Gateway.
func (g *LogGateway) Charge(_ context.Context, amount int64, currency string) (string, error) {
	ref := "chg_" + uuid.New().String()
	g.logger.Info().Int64("amount", amount).Str("currency", currency).Str("reference", ref).Msg("charge approved")
	return ref, nil
}

// Refund implements Gateway.
func (g *LogGateway) Refund(_ context.Context, originalReference string, amount int64) (string, error) {
	ref := "rfd_" + uuid.New().String()
	g.logger.Info().Int64("amount", amount).Str("original", originalReference).Str("reference", ref).Msg("refund approved")
	return ref, nil
}
