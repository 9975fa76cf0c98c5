package service

import (
	"context"
	"errors"
	"strings"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("entitlement.service"),
	}
}

// Resolve derives the organization's entitlements from its subscription
// record, preferring a persisted snapshot whose source marks it as an
// explicit override. It never returns an error: anything unresolvable
// degrades to the inactive free-plan default.
func (s *Service) Resolve(ctx context.Context, orgID snowflake.ID) domain.Entitlement {
	ent := defaultEntitlement(orgID)
	if orgID == 0 {
		return ent
	}

	var record subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Where("org_id = ?", orgID).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No subscription yet; stay on the free default.
	case err != nil:
		s.log.Warn("subscription record read failed, serving degraded entitlement",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return ent
	default:
		ent.PlanID = record.PlanID
		if !catalog.KnownPlan(ent.PlanID) {
			ent.PlanID = catalog.FreePlanID
		}
		ent.Status = record.Status
		ent.Provider = record.Provider
		ent.RenewalAt = record.CurrentPeriodEnd
		ent.CancelAtPeriodEnd = record.CancelAtPeriodEnd
	}

	ent.Capabilities = s.capabilityMap(ctx, orgID, ent.PlanID, ent.Status)
	s.applyLegacyTiers(ctx, orgID, ent.Capabilities)
	return ent
}

// capabilityMap prefers a manually-sourced snapshot; otherwise it derives
// from the catalog. Unknown capability keys in a snapshot are dropped.
func (s *Service) capabilityMap(ctx context.Context, orgID snowflake.ID, planID, status string) map[string]bool {
	var snap domain.Snapshot
	err := s.db.WithContext(ctx).Where("org_id = ?", orgID).First(&snap).Error
	if err == nil && snap.Source == domain.SourceManual && len(snap.Capabilities) > 0 {
		caps := catalog.BaseCapabilities()
		for key, raw := range snap.Capabilities {
			enabled, ok := raw.(bool)
			if !ok {
				continue
			}
			if _, known := caps[key]; known {
				caps[key] = enabled
			}
		}
		return caps
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn("entitlement snapshot read failed",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
	}
	return catalog.CapabilitiesFor(planID, status)
}

// applyLegacyTiers force-enables capabilities granted by the owner's legacy
// tier flag. Upgrade only.
func (s *Service) applyLegacyTiers(ctx context.Context, orgID snowflake.ID, caps map[string]bool) {
	var org organizationdomain.Organization
	if err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error; err != nil {
		return
	}
	var profile organizationdomain.OwnerProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", org.OwnerUserID).First(&profile).Error; err != nil {
		return
	}
	if tier := strings.TrimSpace(profile.LegacyTier); tier != "" {
		catalog.ApplyLegacyTiers(caps, []string{tier})
	}
}

func defaultEntitlement(orgID snowflake.ID) domain.Entitlement {
	return domain.Entitlement{
		OrganizationID: orgID,
		PlanID:         catalog.FreePlanID,
		Status:         "inactive",
		Capabilities:   catalog.BaseCapabilities(),
	}
}
