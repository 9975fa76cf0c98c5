package service

import (
	"context"
	"testing"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OwnerProfile{},
		&subscriptiondomain.SubscriptionRecord{},
		&domain.Snapshot{},
	))
	return NewService(ServiceParam{DB: db, Log: zap.NewNop()}), db
}

func seedOrg(t *testing.T, db *gorm.DB, orgID snowflake.ID, owner string) {
	t.Helper()
	require.NoError(t, db.Create(&organizationdomain.Organization{
		ID:                 orgID,
		OwnerUserID:        owner,
		DisplayName:        owner,
		Status:             organizationdomain.OrganizationStatusActive,
		PlanID:             catalog.FreePlanID,
		SubscriptionStatus: "inactive",
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}).Error)
}

func TestResolveAbsentOrganizationDegradesToFree(t *testing.T) {
	svc, _ := newTestService(t)

	ent := svc.Resolve(context.Background(), 12345)
	assert.Equal(t, catalog.FreePlanID, ent.PlanID)
	assert.Equal(t, "inactive", ent.Status)
	assert.Equal(t, catalog.BaseCapabilities(), ent.Capabilities)

	ent = svc.Resolve(context.Background(), 0)
	assert.Equal(t, catalog.FreePlanID, ent.PlanID)
	assert.Equal(t, catalog.BaseCapabilities(), ent.Capabilities)
}

func TestResolveDerivesFromSubscriptionRecord(t *testing.T) {
	svc, db := newTestService(t)
	orgID := snowflake.ID(42)
	seedOrg(t, db, orgID, "user_a")

	end := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
	require.NoError(t, db.Create(&subscriptiondomain.SubscriptionRecord{
		OrgID:            orgID,
		PlanID:           "host_monthly",
		Status:           "active",
		Provider:         "stripe",
		CurrentPeriodEnd: &end,
		UpdatedAt:        time.Now().UTC(),
	}).Error)

	ent := svc.Resolve(context.Background(), orgID)
	assert.Equal(t, "host_monthly", ent.PlanID)
	assert.Equal(t, "active", ent.Status)
	assert.Equal(t, "stripe", ent.Provider)
	require.NotNil(t, ent.RenewalAt)
	assert.True(t, end.Equal(*ent.RenewalAt))
	assert.True(t, ent.Capabilities[catalog.CapAISongIntros])
	assert.False(t, ent.Capabilities[catalog.CapMultiRoom])
}

func TestResolveUnknownPlanFallsBackToFree(t *testing.T) {
	svc, db := newTestService(t)
	orgID := snowflake.ID(43)
	seedOrg(t, db, orgID, "user_b")

	require.NoError(t, db.Create(&subscriptiondomain.SubscriptionRecord{
		OrgID:     orgID,
		PlanID:    "plan_we_deleted_years_ago",
		Status:    "active",
		UpdatedAt: time.Now().UTC(),
	}).Error)

	ent := svc.Resolve(context.Background(), orgID)
	assert.Equal(t, catalog.FreePlanID, ent.PlanID)
	assert.Equal(t, catalog.BaseCapabilities(), ent.Capabilities)
}

func TestResolveManualSnapshotOverrides(t *testing.T) {
	svc, db := newTestService(t)
	orgID := snowflake.ID(44)
	seedOrg(t, db, orgID, "user_c")

	require.NoError(t, db.Create(&subscriptiondomain.SubscriptionRecord{
		OrgID:     orgID,
		PlanID:    catalog.FreePlanID,
		Status:    "inactive",
		UpdatedAt: time.Now().UTC(),
	}).Error)
	require.NoError(t, db.Create(&domain.Snapshot{
		OrgID:  orgID,
		PlanID: catalog.FreePlanID,
		Status: "inactive",
		Capabilities: datatypes.JSONMap{
			catalog.CapRemoveWatermark: true,
			"capability_from_mars":     true,
			catalog.CapMultiRoom:       "yes",
		},
		Source:    domain.SourceManual,
		UpdatedAt: time.Now().UTC(),
	}).Error)

	ent := svc.Resolve(context.Background(), orgID)
	assert.True(t, ent.Capabilities[catalog.CapRemoveWatermark], "manual override applies")
	assert.False(t, ent.Capabilities[catalog.CapMultiRoom], "non-boolean values are ignored")
	_, present := ent.Capabilities["capability_from_mars"]
	assert.False(t, present, "unknown keys are never trusted")
}

func TestResolveDerivedSnapshotDoesNotOverride(t *testing.T) {
	svc, db := newTestService(t)
	orgID := snowflake.ID(45)
	seedOrg(t, db, orgID, "user_d")

	require.NoError(t, db.Create(&domain.Snapshot{
		OrgID:        orgID,
		PlanID:       catalog.FreePlanID,
		Status:       "inactive",
		Capabilities: datatypes.JSONMap{catalog.CapRemoveWatermark: true},
		Source:       domain.SourceDerived,
		UpdatedAt:    time.Now().UTC(),
	}).Error)

	ent := svc.Resolve(context.Background(), orgID)
	assert.False(t, ent.Capabilities[catalog.CapRemoveWatermark],
		"a derived snapshot is a cache, not an override")
}

func TestResolveLegacyTierUpgrade(t *testing.T) {
	svc, db := newTestService(t)
	orgID := snowflake.ID(46)
	seedOrg(t, db, orgID, "user_e")

	require.NoError(t, db.Create(&organizationdomain.OwnerProfile{
		UserID:     "user_e",
		LegacyTier: "vip",
		UpdatedAt:  time.Now().UTC(),
	}).Error)

	ent := svc.Resolve(context.Background(), orgID)
	assert.Equal(t, catalog.FreePlanID, ent.PlanID)
	assert.True(t, ent.Capabilities[catalog.CapRemoveWatermark])
	assert.True(t, ent.Capabilities[catalog.CapVideoBackgrounds])
	assert.False(t, ent.Capabilities[catalog.CapCustomBranding])
}
