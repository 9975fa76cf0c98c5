package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
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
		log: p.Log.Named("organization.service"),
	}
}

// DeriveOrgID maps an owner user id onto a stable organization id. The id is
// a positive 63-bit FNV-1a hash, so the same owner always lands on the same
// row and INSERT ... ON CONFLICT DO NOTHING makes first-use creation safe
// under concurrent callers.
func DeriveOrgID(ownerUserID string) snowflake.ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ownerUserID))
	return snowflake.ID(int64(h.Sum64() & 0x7fffffffffffffff))
}

func (s *Service) EnsureForOwner(ctx context.Context, ownerUserID, displayName string) (*domain.Organization, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, domain.ErrInvalidOwner
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:                 DeriveOrgID(ownerUserID),
		OwnerUserID:        ownerUserID,
		DisplayName:        strings.TrimSpace(displayName),
		Status:             domain.OrganizationStatusActive,
		PlanID:             catalog.FreePlanID,
		SubscriptionStatus: "inactive",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if org.DisplayName == "" {
		org.DisplayName = ownerUserID
	}

	inserted, err := atomicstore.InsertOnce(s.db.WithContext(ctx), org)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Info("organization created",
			zap.String("org_id", org.ID.String()),
			zap.String("owner_user_id", ownerUserID),
		)
		return org, nil
	}
	return s.GetByOwner(ctx, ownerUserID)
}

func (s *Service) GetByID(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationMissing
		}
		return nil, err
	}
	return &org, nil
}

func (s *Service) GetByOwner(ctx context.Context, ownerUserID string) (*domain.Organization, error) {
	var org domain.Organization
	err := s.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationMissing
		}
		return nil, err
	}
	return &org, nil
}
