// Package domain contains the award ledger models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

const (
	// MaxPointsPerRecipient clamps a single call's total for one recipient.
	MaxPointsPerRecipient = 5000
	// MaxRecipientsPerCall bounds the blast radius of a malformed request.
	MaxRecipientsPerCall = 100
)

var (
	ErrInvalidAwardKey   = errors.New("invalid_award_key")
	ErrInvalidRoom       = errors.New("invalid_room")
	ErrNoValidAwards     = errors.New("no_valid_awards")
	ErrTooManyRecipients = errors.New("too_many_recipients")
)

// Award is one point credit for one recipient.
type Award struct {
	RecipientID string `json:"recipient_id"`
	Points      int64  `json:"points"`
}

// AwardEvent is the durable dedup record. Its key is supplied by the caller
// or derived from the triggering event, so a retry always finds it.
type AwardEvent struct {
	AwardKey          string         `gorm:"primaryKey;type:text"`
	RoomID            string         `gorm:"type:text;not null;index"`
	Source            string         `gorm:"type:text;not null"`
	Awards            datatypes.JSON `gorm:"type:jsonb"`
	SkippedRecipients datatypes.JSON `gorm:"type:jsonb"`
	AwardedCount      int            `gorm:"not null"`
	AwardedPoints     int64          `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (AwardEvent) TableName() string { return "award_events" }

// ApplyResult reports what one ApplyOnce call did. Duplicate is a named
// outcome, not an error: the first call already applied the points.
type ApplyResult struct {
	Applied           bool     `json:"applied"`
	Duplicate         bool     `json:"duplicate"`
	AwardedCount      int      `json:"awarded_count"`
	AwardedPoints     int64    `json:"awarded_points"`
	SkippedRecipients []string `json:"skipped_recipients,omitempty"`
}

// Service is the idempotent award ledger.
type Service interface {
	// ApplyOnce credits each recipient's point balance exactly once per
	// awardKey. The dedup record and the balance increments commit in the
	// same transaction, so a retry after a successful commit always sees
	// the record and short-circuits.
	ApplyOnce(ctx context.Context, roomID, awardKey string, awards []Award, source string) (ApplyResult, error)
}

// Normalize aggregates duplicate recipients, clamps per-recipient totals to
// [0, MaxPointsPerRecipient] and drops zero or negative entries. Order of
// first appearance is preserved.
func Normalize(awards []Award) []Award {
	totals := make(map[string]int64, len(awards))
	order := make([]string, 0, len(awards))
	for _, award := range awards {
		if award.RecipientID == "" {
			continue
		}
		if _, seen := totals[award.RecipientID]; !seen {
			order = append(order, award.RecipientID)
		}
		totals[award.RecipientID] += award.Points
	}

	out := make([]Award, 0, len(order))
	for _, recipient := range order {
		points := totals[recipient]
		if points <= 0 {
			continue
		}
		if points > MaxPointsPerRecipient {
			points = MaxPointsPerRecipient
		}
		out = append(out, Award{RecipientID: recipient, Points: points})
	}
	return out
}
