package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/wallet"
)

var _ wallet.Repository = (*walletRepository)(nil)

// walletRepository implements wallet.Repository using PostgreSQL.
type walletRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWalletRepository creates a new PostgreSQL-backed wallet repository.
func NewWalletRepository(pool *pgxpool.Pool, logger zerolog.Logger) wallet.Repository {
	return &walletRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "wallet").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *walletRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetForUpdate loads a wallet row locked for the duration of tx.
func (r *walletRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Wallet, error) {
	query := `
		SELECT user_id, balance, currency, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`

	var w model.Wallet
	err := tx.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.Currency, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("user_id", userID.String()).Msg("wallet not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wallet")
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	return &w, nil
}

// UpdateBalance sets the wallet balance within the provided transaction.
func (r *walletRepository) UpdateBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance int64) error {
	query := `UPDATE wallets SET balance = $2, updated_at = now() WHERE user_id = $1`

	tag, err := tx.Exec(ctx, query, userID, balance)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to update wallet balance")
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("wallet for user %s not found", userID)
	}
	return nil
}

// CreateTransaction inserts a transaction row within the provided transaction.
func (r *walletRepository) CreateTransaction(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, transaction_type, reference_type, reference_id,
			amount, payment_method, status, description, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		txn.ID, txn.UserID, txn.Type, txn.ReferenceType, txn.ReferenceID,
		txn.Amount, txn.PaymentMethod, txn.Status, txn.Description, txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("failed to create transaction")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Get loads a wallet without locking.
func (r *walletRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	query := `SELECT user_id, balance, currency, updated_at FROM wallets WHERE user_id = $1`

	var w model.Wallet
	err := r.pool.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.Currency, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wallet")
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	return &w, nil
}

const transactionColumns = `
	id, user_id, transaction_type, reference_type, reference_id, amount,
	payment_method, status, description, created_at
`

func (r *walletRepository) collectTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.ReferenceType, &t.ReferenceID,
			&t.Amount, &t.PaymentMethod, &t.Status, &t.Description, &t.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan transaction row")
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating transaction rows")
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// ListTransactions returns a user's transaction history, newest first.
func (r *walletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query transactions")
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// TransactionsByReference returns all transactions recorded against a
// referenced entity.
func (r *walletRepository) TransactionsByReference(ctx context.Context, refType model.ReferenceType, refID string) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, refType, refID)
	if err != nil {
		r.logger.Error().Err(err).Str("reference_id", refID).Msg("failed to query transactions by reference")
		return nil, fmt.Errorf("failed to query transactions by reference: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}
