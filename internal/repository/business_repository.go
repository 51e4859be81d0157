package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// businessRepository implements the BusinessRepository interface using PostgreSQL.
type businessRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBusinessRepository creates a new PostgreSQL-backed business repository.
func NewBusinessRepository(pool *pgxpool.Pool, logger zerolog.Logger) BusinessRepository {
	return &businessRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "business").Logger(),
	}
}

// GetByID retrieves a single business by its ID.
func (r *businessRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	query := `
		SELECT id, name, active, partner, lat, lon, created_at
		FROM businesses
		WHERE id = $1
	`

	var b model.Business
	err := r.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.Name, &b.Active, &b.Partner, &b.Latitude, &b.Longitude, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("business_id", id.String()).Msg("business not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("business_id", id.String()).Msg("failed to query business")
		return nil, fmt.Errorf("failed to query business: %w", err)
	}

	return &b, nil
}

// GetByIDs retrieves multiple businesses by their IDs.
func (r *businessRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Business, error) {
	if len(ids) == 0 {
		return []model.Business{}, nil
	}

	query := `
		SELECT id, name, active, partner, lat, lon, created_at
		FROM businesses
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query businesses by IDs")
		return nil, fmt.Errorf("failed to query businesses by IDs: %w", err)
	}
	defer rows.Close()

	var businesses []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Active, &b.Partner, &b.Latitude, &b.Longitude, &b.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan business row")
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating business rows")
		return nil, fmt.Errorf("error iterating businesses: %w", err)
	}

	return businesses, nil
}

// driverRepository implements the DriverRepository interface using PostgreSQL.
type driverRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDriverRepository creates a new PostgreSQL-backed driver repository.
func NewDriverRepository(pool *pgxpool.Pool, logger zerolog.Logger) DriverRepository {
	return &driverRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "driver").Logger(),
	}
}

// GetByID retrieves a single driver by its ID.
func (r *driverRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Driver, error) {
	query := `
		SELECT id, name, phone, active, created_at
		FROM drivers
		WHERE id = $1
	`

	var d model.Driver
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Phone, &d.Active, &d.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("driver_id", id.String()).Msg("driver not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("driver_id", id.String()).Msg("failed to query driver")
		return nil, fmt.Errorf("failed to query driver: %w", err)
	}

	return &d, nil
}

// subscriptionRepository implements the SubscriptionRepository interface using PostgreSQL.
type subscriptionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(pool *pgxpool.Pool, logger zerolog.Logger) SubscriptionRepository {
	return &subscriptionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "subscription").Logger(),
	}
}

// HasActive reports whether the user holds an active, unexpired subscription.
func (r *subscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND active AND expires_at > $2
		)
	`

	var active bool
	if err := r.pool.QueryRow(ctx, query, userID, at).Scan(&active); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query subscription")
		return false, fmt.Errorf("failed to query subscription: %w", err)
	}
	return active, nil
}
