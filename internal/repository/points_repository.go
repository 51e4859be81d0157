package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/points"
)

var _ points.Repository = (*pointsRepository)(nil)

// pointsRepository implements points.Repository using PostgreSQL.
type pointsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPointsRepository creates a new PostgreSQL-backed points repository.
func NewPointsRepository(pool *pgxpool.Pool, logger zerolog.Logger) points.Repository {
	return &pointsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "points").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *pointsRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// LatestBalance returns the most recent balance snapshot for a user within
// tx. A per-user advisory lock serializes concurrent appends, since the
// append-only table has no single row to lock.
func (r *pointsRepository) LatestBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	lockQuery := `SELECT pg_advisory_xact_lock(hashtext('points:' || $1::text))`
	if _, err := tx.Exec(ctx, lockQuery, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to acquire points lock")
		return 0, fmt.Errorf("failed to acquire points lock: %w", err)
	}

	query := `
		SELECT balance
		FROM points_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var balance int
	err := tx.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query points balance")
		return 0, fmt.Errorf("failed to query points balance: %w", err)
	}
	return balance, nil
}

// Append inserts a ledger entry within the provided transaction.
func (r *pointsRepository) Append(ctx context.Context, tx pgx.Tx, entry *model.PointsEntry) error {
	query := `
		INSERT INTO points_entries (
			id, user_id, points_earned, points_spent, balance,
			activity_type, reference_id, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Earned, entry.Spent, entry.Balance,
		entry.ActivityType, entry.ReferenceID, entry.ExpiresAt, entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to append points entry")
		return fmt.Errorf("failed to append points entry: %w", err)
	}

	return nil
}

// Balance returns the current balance without locking.
func (r *pointsRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT balance
		FROM points_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var balance int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query points balance")
		return 0, fmt.Errorf("failed to query points balance: %w", err)
	}
	return balance, nil
}

// History returns a user's ledger entries, newest first.
func (r *pointsRepository) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.PointsEntry, error) {
	query := `
		SELECT id, user_id, points_earned, points_spent, balance,
		       activity_type, reference_id, expires_at, created_at
		FROM points_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query points history")
		return nil, fmt.Errorf("failed to query points history: %w", err)
	}
	defer rows.Close()

	var entries []model.PointsEntry
	for rows.Next() {
		var e model.PointsEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.Earned, &e.Spent, &e.Balance,
			&e.ActivityType, &e.ReferenceID, &e.ExpiresAt, &e.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan points entry row")
			return nil, fmt.Errorf("failed to scan points entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating points entry rows")
		return nil, fmt.Errorf("error iterating points entries: %w", err)
	}

	return entries, nil
}
