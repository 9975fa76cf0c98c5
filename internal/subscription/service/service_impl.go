package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	OrgSvc organizationdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	orgSvc organizationdomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("subscription.service"),
		orgSvc: p.OrgSvc,
	}
}

// ApplyState treats the payload as the authoritative latest state for its
// subscription id and commits a last-write-wins merge across the tenant's
// billing documents in one transaction. Provider callbacks are delivered at
// least once and may arrive out of order; no timestamp reordering is
// attempted.
func (s *Service) ApplyState(ctx context.Context, payload subscriptiondomain.SyncPayload) error {
	planID := strings.TrimSpace(payload.PlanID)
	if !catalog.KnownPlan(planID) {
		planID = catalog.FreePlanID
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		return subscriptiondomain.ErrInvalidStatus
	}

	orgID, ownerUserID, err := s.resolveOrganization(ctx, payload)
	if err != nil {
		return err
	}

	capabilities := catalog.CapabilitiesFor(planID, status)
	now := time.Now().UTC()

	return atomicstore.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&organizationdomain.Organization{}).
			Where("id = ?", orgID).
			Updates(map[string]any{
				"plan_id":             planID,
				"subscription_status": status,
				"current_period_end":  payload.CurrentPeriodEnd,
				"updated_at":          now,
			}).Error; err != nil {
			return err
		}

		record := &subscriptiondomain.SubscriptionRecord{
			OrgID:                  orgID,
			PlanID:                 planID,
			Status:                 status,
			Provider:               payload.Provider,
			ExternalCustomerID:     payload.ExternalCustomerID,
			ExternalSubscriptionID: payload.ExternalSubscriptionID,
			CurrentPeriodEnd:       payload.CurrentPeriodEnd,
			CancelAtPeriodEnd:      payload.CancelAtPeriodEnd,
			UpdatedAt:              now,
		}
		if err := atomicstore.SetMerge(tx, record,
			[]string{"org_id"},
			[]string{"plan_id", "status", "provider", "external_customer_id",
				"external_subscription_id", "current_period_end",
				"cancel_at_period_end", "updated_at"},
		); err != nil {
			return err
		}

		snapshot := &entitlementdomain.Snapshot{
			OrgID:        orgID,
			PlanID:       planID,
			Status:       status,
			Capabilities: capabilityJSON(capabilities),
			Source:       payload.Source,
			UpdatedAt:    now,
		}
		if snapshot.Source == "" {
			snapshot.Source = entitlementdomain.SourceDerived
		}
		if err := atomicstore.SetMerge(tx, snapshot,
			[]string{"org_id"},
			[]string{"plan_id", "status", "capabilities", "source", "updated_at"},
		); err != nil {
			return err
		}

		if ownerUserID != "" {
			profile := &organizationdomain.OwnerProfile{
				UserID:       ownerUserID,
				LegacyPlanID: planID,
				LegacyStatus: status,
				UpdatedAt:    now,
			}
			if err := atomicstore.SetMerge(tx, profile,
				[]string{"user_id"},
				[]string{"legacy_plan_id", "legacy_status", "updated_at"},
			); err != nil {
				return err
			}
		}

		if sub := strings.TrimSpace(payload.ExternalSubscriptionID); sub != "" {
			ref := &subscriptiondomain.SubscriptionRef{
				ExternalSubscriptionID: sub,
				OrgID:                  orgID,
				Provider:               payload.Provider,
				UpdatedAt:              now,
			}
			if err := atomicstore.SetMerge(tx, ref,
				[]string{"external_subscription_id"},
				[]string{"org_id", "provider", "updated_at"},
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) ResolveOrg(ctx context.Context, externalSubscriptionID string) (snowflake.ID, error) {
	externalSubscriptionID = strings.TrimSpace(externalSubscriptionID)
	if externalSubscriptionID == "" {
		return 0, subscriptiondomain.ErrInvalidOrganization
	}
	var ref subscriptiondomain.SubscriptionRef
	err := s.db.WithContext(ctx).
		Where("external_subscription_id = ?", externalSubscriptionID).
		First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, subscriptiondomain.ErrInvalidOrganization
		}
		return 0, err
	}
	return ref.OrgID, nil
}

func (s *Service) GetRecord(ctx context.Context, orgID snowflake.ID) (*subscriptiondomain.SubscriptionRecord, error) {
	var record subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Where("org_id = ?", orgID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriptiondomain.ErrInvalidOrganization
		}
		return nil, err
	}
	return &record, nil
}

// resolveOrganization finds the tenant the payload belongs to: an explicit
// org id, then the reverse index, then first-use creation from the owner id.
func (s *Service) resolveOrganization(ctx context.Context, payload subscriptiondomain.SyncPayload) (snowflake.ID, string, error) {
	ownerUserID := strings.TrimSpace(payload.OwnerUserID)

	if payload.OrganizationID != 0 {
		org, err := s.orgSvc.GetByID(ctx, payload.OrganizationID)
		if err != nil {
			return 0, "", err
		}
		if ownerUserID == "" {
			ownerUserID = org.OwnerUserID
		}
		return org.ID, ownerUserID, nil
	}

	if orgID, err := s.ResolveOrg(ctx, payload.ExternalSubscriptionID); err == nil {
		org, gerr := s.orgSvc.GetByID(ctx, orgID)
		if gerr != nil {
			return 0, "", gerr
		}
		if ownerUserID == "" {
			ownerUserID = org.OwnerUserID
		}
		return orgID, ownerUserID, nil
	}

	if ownerUserID != "" {
		org, err := s.orgSvc.EnsureForOwner(ctx, ownerUserID, "")
		if err != nil {
			return 0, "", err
		}
		return org.ID, ownerUserID, nil
	}

	return 0, "", subscriptiondomain.ErrInvalidOrganization
}

func capabilityJSON(caps map[string]bool) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(caps))
	for key, enabled := range caps {
		out[key] = enabled
	}
	return out
}
