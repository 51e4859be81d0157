// Package points is the append-only loyalty points ledger. Every
// points-affecting event becomes one immutable entry carrying the balance
// snapshot after the event.
package points

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// Redemption bounds applied before any ledger mutation.
const (
	MinRedeem      = 100
	MaxRedeem      = 10000
	RedeemMultiple = 50
)

// ExpiryWindow is how long awarded points stay valid.
const ExpiryWindow = 365 * 24 * time.Hour

// Repository defines persistence operations for the points ledger.
type Repository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// LatestBalance returns the most recent balance snapshot for a user
	// within tx, serialized against concurrent appends. A user with no
	// entries has balance zero.
	LatestBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)

	// Append inserts a ledger entry within the provided transaction.
	Append(ctx context.Context, tx pgx.Tx, entry *model.PointsEntry) error

	// Balance returns the current balance without locking.
	Balance(ctx context.Context, userID uuid.UUID) (int, error)

	// History returns a user's ledger entries, newest first.
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.PointsEntry, error)
}

// Ledger awards and redeems loyalty points.
type Ledger struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewLedger creates a points ledger.
func NewLedger(repo Repository, logger zerolog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger.With().Str("component", "points_ledger").Logger(),
		now:    time.Now,
	}
}

// Award appends an accrual entry. Zero-point awards are dropped silently so
// callers can award unconditionally after small orders.
func (l *Ledger) Award(ctx context.Context, userID uuid.UUID, pts int, activityType, referenceID string) (*model.PointsEntry, error) {
	if pts < 0 {
		return nil, model.ErrInvalidAmount
	}
	if pts == 0 {
		return nil, nil
	}
	return l.append(ctx, userID, pts, 0, activityType, referenceID)
}

// Redeem appends a spend entry after validating the redemption bounds and
// the user's balance. The ledger is not touched on any validation failure.
func (l *Ledger) Redeem(ctx context.Context, userID uuid.UUID, pts int) (*model.PointsEntry, error) {
	if pts < MinRedeem || pts > MaxRedeem || pts%RedeemMultiple != 0 {
		return nil, model.ErrInvalidRedemption
	}
	return l.append(ctx, userID, 0, pts, "redemption", userID.String())
}

func (l *Ledger) append(ctx context.Context, userID uuid.UUID, earned, spent int, activityType, referenceID string) (entry *model.PointsEntry, err error) {
	tx, err := l.repo.BeginTx(ctx)
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin points transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				l.logger.Error().Err(rbErr).Msg("failed to rollback points transaction")
			}
		}
	}()

	balance, err := l.repo.LatestBalance(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load points balance: %w", err)
	}

	if spent > balance {
		err = model.ErrInsufficientPoints
		l.logger.Warn().
			Str("user_id", userID.String()).
			Int("balance", balance).
			Int("requested", spent).
			Msg("points redemption rejected")
		return nil, err
	}

	now := l.now()
	entry = &model.PointsEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Earned:       earned,
		Spent:        spent,
		Balance:      balance + earned - spent,
		ActivityType: activityType,
		ReferenceID:  referenceID,
		ExpiresAt:    now.Add(ExpiryWindow),
		CreatedAt:    now,
	}
	if err = l.repo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to append points entry: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit points transaction: %w", err)
	}

	l.logger.Info().
		Str("user_id", userID.String()).
		Int("earned", earned).
		Int("spent", spent).
		Int("balance", entry.Balance).
		Str("activity_type", activityType).
		Msg("points entry appended")

	return entry, nil
}

// Balance returns the user's current points balance.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.repo.Balance(ctx, userID)
}

// History returns the user's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.PointsEntry, error) {
	return l.repo.History(ctx, userID, limit, offset)
}
