package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/qrcode"
)

var _ qrcode.Repository = (*qrRepository)(nil)

// qrRepository implements qrcode.Repository using PostgreSQL.
type qrRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewQRRepository creates a new PostgreSQL-backed QR token repository.
func NewQRRepository(pool *pgxpool.Pool, logger zerolog.Logger) qrcode.Repository {
	return &qrRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "qrcode").Logger(),
	}
}

const insertQRQuery = `
	INSERT INTO qr_codes (token, qr_type, reference_id, metadata, expires_at, is_used, created_at)
	VALUES ($1, $2, $3, $4, $5, false, $6)
`

// execer covers both pool and transaction execution.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (r *qrRepository) create(ctx context.Context, db execer, code *model.QRCode) error {
	metadataJSON, err := json.Marshal(code.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = db.Exec(ctx, insertQRQuery,
		code.Token, code.Type, code.ReferenceID, metadataJSON, code.ExpiresAt, code.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("qr_type", string(code.Type)).Msg("failed to create qr token")
		return fmt.Errorf("failed to create qr token: %w", err)
	}

	return nil
}

// Create inserts a QR token row.
func (r *qrRepository) Create(ctx context.Context, code *model.QRCode) error {
	return r.create(ctx, r.pool, code)
}

// CreateInTx inserts a QR token row inside a caller-owned transaction.
func (r *qrRepository) CreateInTx(ctx context.Context, tx pgx.Tx, code *model.QRCode) error {
	return r.create(ctx, tx, code)
}

// GetByToken loads a QR token row, or nil when absent.
func (r *qrRepository) GetByToken(ctx context.Context, token string) (*model.QRCode, error) {
	query := `
		SELECT token, qr_type, reference_id, metadata, expires_at, is_used, used_at, created_at
		FROM qr_codes
		WHERE token = $1
	`

	var code model.QRCode
	var metadataJSON []byte
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&code.Token, &code.Type, &code.ReferenceID, &metadataJSON,
		&code.ExpiresAt, &code.IsUsed, &code.UsedAt, &code.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query qr token")
		return nil, fmt.Errorf("failed to query qr token: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &code.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &code, nil
}

// MarkUsed flips the used flag exactly once; a second call finds no
// matching row and fails, so a single-use token can never be consumed twice
// even under concurrent scans.
func (r *qrRepository) MarkUsed(ctx context.Context, token string, usedAt time.Time) error {
	query := `
		UPDATE qr_codes SET is_used = true, used_at = $2
		WHERE token = $1 AND NOT is_used
	`

	tag, err := r.pool.Exec(ctx, query, token, usedAt)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to mark qr token used")
		return fmt.Errorf("failed to mark qr token used: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return model.ErrQRAlreadyUsed
	}

	return nil
}
