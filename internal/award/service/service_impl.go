package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/metrics"
	roomdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errDuplicateKey aborts the transaction when another writer committed the
// same award key first; the rollback undoes this call's increments.
var errDuplicateKey = errors.New("award_key_already_applied")

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) awarddomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("award.service"),
		metrics: p.Metrics,
	}
}

func (s *Service) ApplyOnce(ctx context.Context, roomID, awardKey string, awards []awarddomain.Award, source string) (awarddomain.ApplyResult, error) {
	roomID = strings.TrimSpace(roomID)
	awardKey = strings.TrimSpace(awardKey)
	if roomID == "" {
		return awarddomain.ApplyResult{}, awarddomain.ErrInvalidRoom
	}
	if awardKey == "" {
		return awarddomain.ApplyResult{}, awarddomain.ErrInvalidAwardKey
	}
	if len(awards) > awarddomain.MaxRecipientsPerCall {
		return awarddomain.ApplyResult{}, awarddomain.ErrTooManyRecipients
	}

	normalized := awarddomain.Normalize(awards)
	if len(normalized) == 0 {
		return awarddomain.ApplyResult{}, awarddomain.ErrNoValidAwards
	}

	var result awarddomain.ApplyResult
	err := atomicstore.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		// Fast path: a committed replay short-circuits before any writes.
		var existing awarddomain.AwardEvent
		err := tx.Where("award_key = ?", awardKey).First(&existing).Error
		if err == nil {
			result = duplicateResult(existing)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		applied := make([]awarddomain.Award, 0, len(normalized))
		skipped := make([]string, 0)
		var totalPoints int64

		for _, award := range normalized {
			// Awards credit existing participants only; they never create one.
			rows, err := atomicstore.Increment(tx, &roomdomain.Participant{}, map[string]any{
				"room_id":        roomID,
				"participant_id": award.RecipientID,
			}, "points", award.Points)
			if err != nil {
				return err
			}
			if rows == 0 {
				skipped = append(skipped, award.RecipientID)
				continue
			}
			applied = append(applied, award)
			totalPoints += award.Points
		}

		event := awarddomain.AwardEvent{
			AwardKey:          awardKey,
			RoomID:            roomID,
			Source:            source,
			Awards:            datatypes.JSON(mustJSON(applied)),
			SkippedRecipients: datatypes.JSON(mustJSON(skipped)),
			AwardedCount:      len(applied),
			AwardedPoints:     totalPoints,
			CreatedAt:         time.Now().UTC(),
		}
		inserted, err := atomicstore.InsertOnce(tx, &event)
		if err != nil {
			return err
		}
		if !inserted {
			// Another transaction committed this key between our existence
			// check and now. Abort so our increments roll back.
			return errDuplicateKey
		}

		result = awarddomain.ApplyResult{
			Applied:           true,
			AwardedCount:      len(applied),
			AwardedPoints:     totalPoints,
			SkippedRecipients: skipped,
		}
		return nil
	})
	if errors.Is(err, errDuplicateKey) {
		var existing awarddomain.AwardEvent
		if ferr := s.db.WithContext(ctx).Where("award_key = ?", awardKey).First(&existing).Error; ferr == nil {
			result = duplicateResult(existing)
			err = nil
		} else {
			return awarddomain.ApplyResult{}, ferr
		}
	}
	if err != nil {
		return awarddomain.ApplyResult{}, err
	}

	if result.Duplicate {
		s.metrics.CountAward("duplicate")
	} else {
		s.metrics.CountAward("applied")
		s.log.Info("awards applied",
			zap.String("room_id", roomID),
			zap.String("award_key", awardKey),
			zap.String("source", source),
			zap.Int("recipients", result.AwardedCount),
			zap.Int64("points", result.AwardedPoints),
		)
	}
	return result, nil
}

func duplicateResult(event awarddomain.AwardEvent) awarddomain.ApplyResult {
	var skipped []string
	_ = json.Unmarshal([]byte(event.SkippedRecipients), &skipped)
	return awarddomain.ApplyResult{
		Applied:           false,
		Duplicate:         true,
		AwardedCount:      event.AwardedCount,
		AwardedPoints:     event.AwardedPoints,
		SkippedRecipients: skipped,
	}
}

func mustJSON(v any) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return buf
}
