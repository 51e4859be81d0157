// Package qrcode issues and consumes opaque QR tokens bound to a
// (type, reference) pair. Discount and payment tokens are single-use;
// reservation, order and driver_pickup tokens are validated repeatedly but
// trigger a state change on the first valid scan through their handler.
package qrcode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// expiryWindows are the fixed per-type token lifetimes.
var expiryWindows = map[model.QRType]time.Duration{
	model.QRDiscount:     24 * time.Hour,
	model.QRReservation:  24 * time.Hour,
	model.QROrder:        24 * time.Hour,
	model.QRPayment:      1 * time.Hour,
	model.QRDriverPickup: 2 * time.Hour,
}

// Repository defines persistence operations for QR tokens.
type Repository interface {
	Create(ctx context.Context, code *model.QRCode) error
	// CreateInTx persists a token inside a caller-owned transaction, so
	// issuance can be atomic with the mutation that triggered it.
	CreateInTx(ctx context.Context, tx pgx.Tx, code *model.QRCode) error
	GetByToken(ctx context.Context, token string) (*model.QRCode, error)
	MarkUsed(ctx context.Context, token string, usedAt time.Time) error
}

// ScannerContext identifies the actor presenting a token.
type ScannerContext struct {
	ActorID uuid.UUID
	Role    string
}

// Handler authorizes the scanner and performs the state transition
// associated with a token type. A handler error aborts consumption; the
// token is only marked used after the handler succeeds.
type Handler func(ctx context.Context, code *model.QRCode, scanner ScannerContext) error

// Issuer creates, validates and consumes QR tokens.
type Issuer struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	handlers map[model.QRType]Handler
}

// NewIssuer creates an Issuer backed by the given repository.
func NewIssuer(repo Repository, logger zerolog.Logger) *Issuer {
	return &Issuer{
		repo:     repo,
		logger:   logger.With().Str("component", "qr_issuer").Logger(),
		now:      time.Now,
		handlers: make(map[model.QRType]Handler),
	}
}

// RegisterHandler installs the consumption handler for a token type,
// replacing any previous one.
func (i *Issuer) RegisterHandler(t model.QRType, h Handler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[t] = h
}

// Issue creates a token for the given type and reference. The token is a
// hash over type, reference, issue time and a random salt, so it cannot be
// guessed or enumerated.
func (i *Issuer) Issue(ctx context.Context, t model.QRType, referenceID string, metadata map[string]string) (*model.QRCode, error) {
	code, err := i.build(t, referenceID, metadata)
	if err != nil {
		return nil, err
	}
	if err := i.repo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to store qr token: %w", err)
	}
	i.logIssued(code)
	return code, nil
}

// IssueTx is Issue inside a caller-owned transaction. The token only exists
// if the surrounding transaction commits.
func (i *Issuer) IssueTx(ctx context.Context, tx pgx.Tx, t model.QRType, referenceID string, metadata map[string]string) (*model.QRCode, error) {
	code, err := i.build(t, referenceID, metadata)
	if err != nil {
		return nil, err
	}
	if err := i.repo.CreateInTx(ctx, tx, code); err != nil {
		return nil, fmt.Errorf("failed to store qr token: %w", err)
	}
	i.logIssued(code)
	return code, nil
}

func (i *Issuer) build(t model.QRType, referenceID string, metadata map[string]string) (*model.QRCode, error) {
	ttl, ok := expiryWindows[t]
	if !ok {
		return nil, fmt.Errorf("unknown qr type %q", t)
	}

	now := i.now()
	token, err := deriveToken(t, referenceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token: %w", err)
	}

	return &model.QRCode{
		Token:       token,
		Type:        t,
		ReferenceID: referenceID,
		Metadata:    metadata,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

func (i *Issuer) logIssued(code *model.QRCode) {
	i.logger.Debug().
		Str("qr_type", string(code.Type)).
		Str("reference_id", code.ReferenceID).
		Time("expires_at", code.ExpiresAt).
		Msg("qr token issued")
}

// Validate checks a token without consuming it.
func (i *Issuer) Validate(ctx context.Context, token string) (*model.QRCode, error) {
	code, err := i.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load qr token: %w", err)
	}
	if code == nil {
		return nil, model.ErrQRNotFound
	}
	if i.now().After(code.ExpiresAt) {
		return nil, model.ErrQRExpired
	}
	if code.IsUsed && code.Type.SingleUse() {
		return nil, model.ErrQRAlreadyUsed
	}
	return code, nil
}

// Consume re-validates the token, dispatches to the registered handler for
// its type, and marks single-use tokens used only after the handler
// succeeds. A token is never marked used when its transition failed.
func (i *Issuer) Consume(ctx context.Context, token string, scanner ScannerContext) (*model.QRCode, error) {
	code, err := i.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	handler, ok := i.handlers[code.Type]
	i.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for qr type %q", code.Type)
	}

	if err := handler(ctx, code, scanner); err != nil {
		return nil, err
	}

	if code.Type.SingleUse() {
		usedAt := i.now()
		if err := i.repo.MarkUsed(ctx, code.Token, usedAt); err != nil {
			return nil, fmt.Errorf("failed to mark qr token used: %w", err)
		}
		code.IsUsed = true
		code.UsedAt = &usedAt
	}

	i.logger.Info().
		Str("qr_type", string(code.Type)).
		Str("reference_id", code.ReferenceID).
		Str("scanner_role", scanner.Role).
		Msg("qr token consumed")

	return code, nil
}

// deriveToken hashes type, reference, timestamp and 16 random bytes.
func deriveToken(t model.QRType, referenceID string, now time.Time) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(t))
	h.Write([]byte("|"))
	h.Write([]byte(referenceID))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(now.UnixNano(), 10)))
	h.Write([]byte("|"))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil)), nil
}
