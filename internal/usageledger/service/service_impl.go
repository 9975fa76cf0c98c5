package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/metrics"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

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
	now     func() time.Time
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usageledger.service"),
		metrics: p.Metrics,
		now:     time.Now,
	}
}

// Reserve runs the whole read-modify-write as one transaction against the
// period record: quota is re-read inside the transaction, the hard-limit
// check and the counter write commit together, and concurrent reservations
// serialize on the row. Two callers can never both squeeze past the limit.
func (s *Service) Reserve(ctx context.Context, orgID snowflake.ID, meterID string, units int64) (usagedomain.MeterSummary, error) {
	if units < 1 {
		return usagedomain.MeterSummary{}, usagedomain.ErrInvalidUnits
	}
	if _, err := catalog.MeterByID(meterID); err != nil {
		return usagedomain.MeterSummary{}, err
	}
	if orgID == 0 {
		return usagedomain.MeterSummary{}, organizationdomain.ErrOrganizationMissing
	}

	periodKey := usagedomain.PeriodKeyFor(s.now())
	var summary usagedomain.MeterSummary

	err := atomicstore.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var org organizationdomain.Organization
		if err := tx.Where("id = ?", orgID).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return organizationdomain.ErrOrganizationMissing
			}
			return err
		}

		quota, err := catalog.ResolveMeterQuota(meterID, org.PlanID, org.SubscriptionStatus)
		if err != nil {
			return err
		}

		record, err := s.lockPeriodRecord(tx, orgID, periodKey)
		if err != nil {
			return err
		}

		usage := decodeMeterUsage(record.Meters[meterID])
		planned := usage.Used + units
		if quota.HardLimit > 0 && planned > quota.HardLimit {
			return usagedomain.ErrQuotaExhausted
		}

		now := s.now().UTC()
		record.Meters[meterID] = encodeMeterUsage(usagedomain.MeterUsage{
			Used:             planned,
			Included:         quota.Included,
			HardLimit:        quota.HardLimit,
			OverageRateCents: quota.OverageRateCents,
			UpdatedAt:        now,
		})
		record.UpdatedAt = now
		if err := tx.Model(&usagedomain.UsagePeriodRecord{}).
			Where("org_id = ? AND period_key = ?", orgID, periodKey).
			Updates(map[string]any{
				"meters":     record.Meters,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		summary = summarize(meterID, periodKey, planned, quota)
		return nil
	})
	if err != nil {
		if errors.Is(err, usagedomain.ErrQuotaExhausted) {
			s.metrics.CountQuotaExhausted(meterID)
		}
		return usagedomain.MeterSummary{}, err
	}

	s.metrics.CountReservation(meterID, units)
	return summary, nil
}

func (s *Service) Summary(ctx context.Context, orgID snowflake.ID, periodKey string) (usagedomain.UsageSummary, error) {
	if !usagedomain.ValidPeriodKey(periodKey) {
		return usagedomain.UsageSummary{}, usagedomain.ErrInvalidPeriodKey
	}
	if orgID == 0 {
		return usagedomain.UsageSummary{}, organizationdomain.ErrOrganizationMissing
	}

	var org organizationdomain.Organization
	if err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usagedomain.UsageSummary{}, organizationdomain.ErrOrganizationMissing
		}
		return usagedomain.UsageSummary{}, err
	}

	var record usagedomain.UsagePeriodRecord
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND period_key = ?", orgID, periodKey).
		First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return usagedomain.UsageSummary{}, err
	}

	out := usagedomain.UsageSummary{
		OrganizationID: orgID,
		PeriodKey:      periodKey,
	}
	for _, meterID := range catalog.MeterIDs() {
		quota, qerr := catalog.ResolveMeterQuota(meterID, org.PlanID, org.SubscriptionStatus)
		if qerr != nil {
			continue
		}
		usage := decodeMeterUsage(record.Meters[meterID])
		if usage.Used > 0 {
			// Report the quota snapshot taken at reservation time, not a
			// freshly derived one; rate-card changes never rewrite history.
			quota = catalog.MeterQuota{
				Included:         usage.Included,
				HardLimit:        usage.HardLimit,
				OverageRateCents: usage.OverageRateCents,
			}
		}
		out.Meters = append(out.Meters, summarize(meterID, periodKey, usage.Used, quota))
	}
	return out, nil
}

// lockPeriodRecord reads the period row under a row lock, creating it first
// if this is the period's first reservation.
func (s *Service) lockPeriodRecord(tx *gorm.DB, orgID snowflake.ID, periodKey string) (*usagedomain.UsagePeriodRecord, error) {
	now := s.now().UTC()
	fresh := &usagedomain.UsagePeriodRecord{
		OrgID:     orgID,
		PeriodKey: periodKey,
		Meters:    datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := atomicstore.InsertOnce(tx, fresh); err != nil {
		return nil, err
	}

	var record usagedomain.UsagePeriodRecord
	err := atomicstore.LockForUpdate(tx).
		Where("org_id = ? AND period_key = ?", orgID, periodKey).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	if record.Meters == nil {
		record.Meters = datatypes.JSONMap{}
	}
	return &record, nil
}

func summarize(meterID, periodKey string, used int64, quota catalog.MeterQuota) usagedomain.MeterSummary {
	overage := used - quota.Included
	if overage < 0 {
		overage = 0
	}
	return usagedomain.MeterSummary{
		MeterID:               meterID,
		PeriodKey:             periodKey,
		Used:                  used,
		Included:              quota.Included,
		HardLimit:             quota.HardLimit,
		OverageRateCents:      quota.OverageRateCents,
		OverageUnits:          overage,
		EstimatedOverageCents: overage * quota.OverageRateCents,
	}
}

// decodeMeterUsage tolerates the map[string]any form JSONMap yields after a
// round trip through the store.
func decodeMeterUsage(raw any) usagedomain.MeterUsage {
	if raw == nil {
		return usagedomain.MeterUsage{}
	}
	if usage, ok := raw.(usagedomain.MeterUsage); ok {
		return usage
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return usagedomain.MeterUsage{}
	}
	var usage usagedomain.MeterUsage
	if err := json.Unmarshal(buf, &usage); err != nil {
		return usagedomain.MeterUsage{}
	}
	return usage
}

func encodeMeterUsage(usage usagedomain.MeterUsage) map[string]any {
	return map[string]any{
		"used":               usage.Used,
		"included":           usage.Included,
		"hard_limit":         usage.HardLimit,
		"overage_rate_cents": usage.OverageRateCents,
		"updated_at":         usage.UpdatedAt,
	}
}
