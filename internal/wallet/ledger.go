// Package wallet is the ledger owning every wallet balance mutation. A
// balance never changes without a matching transaction row written in the
// same database transaction.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// Repository defines persistence operations for wallets and transactions.
type Repository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetForUpdate loads a wallet row locked for the duration of tx,
	// serializing concurrent mutations per user.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Wallet, error)

	// UpdateBalance sets the wallet balance within the provided transaction.
	UpdateBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance int64) error

	// CreateTransaction inserts a transaction row within the provided transaction.
	CreateTransaction(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error

	// Get loads a wallet without locking.
	Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)

	// ListTransactions returns a user's transaction history, newest first.
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, error)

	// TransactionsByReference returns all transactions recorded against a
	// referenced entity.
	TransactionsByReference(ctx context.Context, refType model.ReferenceType, refID string) ([]model.Transaction, error)
}

// Entry describes one ledger movement to apply.
type Entry struct {
	Type          model.TransactionType
	ReferenceType model.ReferenceType
	ReferenceID   string
	PaymentMethod model.PaymentMethod
	Description   string
}

// Ledger applies credits and debits to user wallets.
type Ledger struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewLedger creates a wallet ledger.
func NewLedger(repo Repository, logger zerolog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger.With().Str("component", "wallet_ledger").Logger(),
		now:    time.Now,
	}
}

// Credit increases a wallet balance by amount and records a completed
// transaction with a positive signed amount, atomically.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount int64, entry Entry) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	return l.apply(ctx, userID, amount, entry)
}

// Debit decreases a wallet balance by amount and records a completed
// transaction with a negative signed amount, atomically. It fails with
// ErrInsufficientBalance when amount exceeds the current balance; the
// balance is left untouched in that case.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount int64, entry Entry) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	return l.apply(ctx, userID, -amount, entry)
}

// apply performs the locked read-modify-write plus transaction insert.
func (l *Ledger) apply(ctx context.Context, userID uuid.UUID, signedAmount int64, entry Entry) (txn *model.Transaction, err error) {
	tx, err := l.repo.BeginTx(ctx)
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin wallet transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				l.logger.Error().Err(rbErr).Msg("failed to rollback wallet transaction")
			}
		}
	}()

	w, err := l.repo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if w == nil {
		return nil, model.ErrWalletNotFound
	}

	newBalance := w.Balance + signedAmount
	if newBalance < 0 {
		err = model.ErrInsufficientBalance
		l.logger.Warn().
			Str("user_id", userID.String()).
			Int64("balance", w.Balance).
			Int64("requested", -signedAmount).
			Msg("wallet debit rejected")
		return nil, err
	}

	if err = l.repo.UpdateBalance(ctx, tx, userID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	txn = &model.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          entry.Type,
		ReferenceType: entry.ReferenceType,
		ReferenceID:   entry.ReferenceID,
		Amount:        signedAmount,
		PaymentMethod: model.PaymentMethodWallet,
		Status:        model.TransactionCompleted,
		Description:   entry.Description,
		CreatedAt:     l.now(),
	}
	if entry.PaymentMethod != "" {
		txn.PaymentMethod = entry.PaymentMethod
	}
	if err = l.repo.CreateTransaction(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit wallet transaction: %w", err)
	}

	l.logger.Info().
		Str("user_id", userID.String()).
		Int64("amount", signedAmount).
		Int64("balance", newBalance).
		Str("transaction_type", string(entry.Type)).
		Msg("wallet balance updated")

	return txn, nil
}

// Record appends a transaction row that does not touch any wallet balance,
// such as an external gateway payment or refund. It keeps the transaction
// history the single source of monetary movements.
func (l *Ledger) Record(ctx context.Context, txn *model.Transaction) error {
	tx, err := l.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin wallet transaction: %w", err)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = l.now()
	}
	if err := l.repo.CreateTransaction(ctx, tx, txn); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			l.logger.Error().Err(rbErr).Msg("failed to rollback wallet transaction")
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit wallet transaction: %w", err)
	}
	return nil
}

// Balance returns the current wallet balance.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	w, err := l.repo.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load wallet: %w", err)
	}
	if w == nil {
		return 0, model.ErrWalletNotFound
	}
	return w.Balance, nil
}

// History returns a user's transaction history, newest first.
func (l *Ledger) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	return l.repo.ListTransactions(ctx, userID, limit, offset)
}

// ByReference returns all transactions recorded against a referenced entity.
func (l *Ledger) ByReference(ctx context.Context, refType model.ReferenceType, refID string) ([]model.Transaction, error) {
	return l.repo.TransactionsByReference(ctx, refType, refID)
}
