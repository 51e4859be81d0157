package model

import (
	"time"

	"github.com/google/uuid"
)

// PointsEntry is one row of the append-only loyalty points ledger. Balance
// is the snapshot after the entry was applied; the current balance of a
// user is the most recent entry's snapshot. Entries are never mutated.
type PointsEntry struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"userId" db:"user_id"`
	Earned       int       `json:"pointsEarned" db:"points_earned"`
	Spent        int       `json:"pointsSpent" db:"points_spent"`
	Balance      int       `json:"balance" db:"balance"`
	ActivityType string    `json:"activityType" db:"activity_type"`
	ReferenceID  string    `json:"referenceId" db:"reference_id"`
	ExpiresAt    time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
