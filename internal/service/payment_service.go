package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/fees"
	"bazaar-backend/internal/model"
	"bazaar-backend/internal/payment"
	"bazaar-backend/internal/repository"
	"bazaar-backend/internal/wallet"
)

// paymentService implements PaymentService. It orchestrates hybrid
// wallet-plus-gateway payments and wallet top-ups; the wallet ledger does
// the balance bookkeeping, the orchestrator decides the split.
type paymentService struct {
	orders  repository.OrderRepository
	wallet  *wallet.Ledger
	gateway payment.Gateway
	calc    *fees.Calculator
	logger  zerolog.Logger
}

func NewPaymentService(orders repository.OrderRepository, w *wallet.Ledger, gateway payment.Gateway, calc *fees.Calculator, logger zerolog.Logger) PaymentService {
	return &paymentService{
		orders:  orders,
		wallet:  w,
		gateway: gateway,
		calc:    calc,
		logger:  logger.With().Str("service", "payment").Logger(),
	}
}

// PayOrder settles an order. The order is claimed with a compare-and-swap
// on its payment status before any money moves, so concurrent attempts
// settle at most once. With useWallet the available balance is drained
// first and only the remainder goes to the gateway. A wallet deduction is
// compensated with a credit if the gateway charge fails, so the caller
// never loses money on a failed payment.
func (s *paymentService) PayOrder(ctx context.Context, orderID, userID uuid.UUID, useWallet bool) (*PaymentResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, model.ErrNotOwner
	}
	if order.PaymentStatus == model.PaymentStatusPaid {
		return nil, model.ErrOrderAlreadyPaid
	}
	if order.Status == model.StatusCancelled {
		return nil, &model.IllegalTransitionError{From: order.Status, To: order.Status}
	}
	if order.PaymentMethod == model.PaymentMethodCash {
		return nil, model.NewDomainError(model.ErrCodeValidation, "Cash orders are settled on completion")
	}

	// Claim the order before moving any money so concurrent settlement
	// attempts race for a single winner; the losers see it already paid.
	claimed, err := s.orders.TransitionPaymentStatus(ctx, orderID, model.PaymentStatusPending, model.PaymentStatusPaid)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrOrderAlreadyPaid
	}

	result := &PaymentResult{OrderID: orderID}
	remaining := order.FinalAmount

	if useWallet && remaining > 0 {
		balance, err := s.wallet.Balance(ctx, userID)
		if err != nil {
			// A user without a wallet simply has nothing to deduct.
			if !errors.Is(err, model.ErrWalletNotFound) {
				s.releaseClaim(ctx, orderID)
				return nil, fmt.Errorf("failed to read wallet balance: %w", err)
			}
			balance = 0
		}
		deduction := balance
		if deduction > remaining {
			deduction = remaining
		}
		if deduction > 0 {
			if _, err := s.wallet.Debit(ctx, userID, deduction, wallet.Entry{
				Type:          model.TransactionPayment,
				ReferenceType: model.ReferenceOrder,
				ReferenceID:   orderID.String(),
				Description:   fmt.Sprintf("Wallet payment for order %s", order.OrderNumber),
			}); err != nil {
				s.releaseClaim(ctx, orderID)
				return nil, err
			}
			result.WalletDeduction = deduction
			remaining -= deduction
		}
	}

	if remaining > 0 {
		ref, err := s.gateway.Charge(ctx, remaining, model.DefaultCurrency)
		if err != nil {
			s.compensateWallet(ctx, order, result.WalletDeduction)
			s.releaseClaim(ctx, orderID)
			s.logger.Error().Err(err).
				Str("order_id", orderID.String()).
				Int64("amount", remaining).
				Msg("gateway charge failed")
			return nil, model.ErrPaymentFailed
		}
		result.GatewayAmount = remaining
		result.GatewayReference = ref

		if err := s.wallet.Record(ctx, &model.Transaction{
			UserID:        userID,
			Type:          model.TransactionPayment,
			ReferenceType: model.ReferenceOrder,
			ReferenceID:   orderID.String(),
			Amount:        -remaining,
			PaymentMethod: model.PaymentMethodOnline,
			Status:        model.TransactionCompleted,
			Description:   "gateway:" + ref,
		}); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to record gateway payment")
		}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int64("wallet_deduction", result.WalletDeduction).
		Int64("gateway_amount", result.GatewayAmount).
		Msg("order paid")

	return result, nil
}

// releaseClaim returns a claimed order to pending after a downstream
// failure so the user can retry. Best-effort; a failure here is logged
// for manual reconciliation.
func (s *paymentService) releaseClaim(ctx context.Context, orderID uuid.UUID) {
	ok, err := s.orders.TransitionPaymentStatus(ctx, orderID, model.PaymentStatusPaid, model.PaymentStatusPending)
	if err != nil || !ok {
		s.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to release settlement claim")
	}
}

// compensateWallet returns a wallet deduction after a downstream failure.
// The compensation is itself best-effort; a failure here is logged for
// manual reconciliation.
func (s *paymentService) compensateWallet(ctx context.Context, order *model.Order, deduction int64) {
	if deduction <= 0 {
		return
	}
	if _, err := s.wallet.Credit(ctx, order.UserID, deduction, wallet.Entry{
		Type:          model.TransactionRefund,
		ReferenceType: model.ReferenceOrder,
		ReferenceID:   order.ID.String(),
		Description:   fmt.Sprintf("Reversal of wallet payment for order %s", order.OrderNumber),
	}); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Int64("deduction", deduction).
			Msg("failed to compensate wallet after gateway failure")
	}
}

// TopUpWallet charges the gateway for the requested amount plus the
// processing fee and credits the amount to the wallet. The wallet is
// credited only after the charge succeeds.
func (s *paymentService) TopUpWallet(ctx context.Context, userID uuid.UUID, amount int64) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	fee := s.calc.WalletTopUpFee(amount)
	ref, err := s.gateway.Charge(ctx, amount+fee, model.DefaultCurrency)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Int64("amount", amount+fee).
			Msg("gateway charge failed")
		return nil, model.ErrPaymentFailed
	}

	txn, err := s.wallet.Credit(ctx, userID, amount, wallet.Entry{
		Type:          model.TransactionTopUp,
		ReferenceType: model.ReferenceWallet,
		ReferenceID:   userID.String(),
		Description:   "gateway:" + ref,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Int64("fee", fee).
		Msg("wallet topped up")

	return txn, nil
}
