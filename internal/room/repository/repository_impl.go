package repository

import (
	"context"
	"errors"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RepositoryParam struct {
	fx.In

	DB *gorm.DB
}

type repository struct {
	db *gorm.DB
}

func Provide(p RepositoryParam) domain.Repository {
	return &repository{db: p.DB}
}

func (r *repository) Join(ctx context.Context, roomID, participantID, displayName string) (*domain.Participant, error) {
	now := time.Now().UTC()
	participant := &domain.Participant{
		RoomID:        roomID,
		ParticipantID: participantID,
		DisplayName:   displayName,
		JoinedAt:      now,
		UpdatedAt:     now,
	}
	inserted, err := atomicstore.InsertOnce(r.db.WithContext(ctx), participant)
	if err != nil {
		return nil, err
	}
	if inserted {
		return participant, nil
	}
	return r.Get(ctx, roomID, participantID)
}

func (r *repository) Get(ctx context.Context, roomID, participantID string) (*domain.Participant, error) {
	var participant domain.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND participant_id = ?", roomID, participantID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (r *repository) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("points DESC, participant_id ASC").
		Find(&participants).Error
	return participants, err
}
