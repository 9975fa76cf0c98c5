// Package domain contains persistence models for live room participants.
package domain

import (
	"context"
	"errors"
	"time"
)

var ErrParticipantNotFound = errors.New("participant_not_found")

// Participant is one guest or host inside a live room, with their reward
// point balance. Awards can only credit participants that already exist.
type Participant struct {
	RoomID        string    `gorm:"primaryKey;type:text"`
	ParticipantID string    `gorm:"primaryKey;type:text"`
	DisplayName   string    `gorm:"type:text"`
	Points        int64     `gorm:"not null;default:0"`
	JoinedAt      time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Participant) TableName() string { return "room_participants" }

// Repository gives the award ledger access to participant rows.
type Repository interface {
	Join(ctx context.Context, roomID, participantID, displayName string) (*Participant, error)
	Get(ctx context.Context, roomID, participantID string) (*Participant, error)
	ListByRoom(ctx context.Context, roomID string) ([]Participant, error)
}
