package service

import (
	"context"
	"testing"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	orgservice "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/service"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (subscriptiondomain.Service, *gorm.DB) {
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
		&subscriptiondomain.SubscriptionRef{},
		&entitlementdomain.Snapshot{},
	))

	orgSvc := orgservice.NewService(orgservice.ServiceParam{DB: db, Log: zap.NewNop()})
	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), OrgSvc: orgSvc})
	return svc, db
}

func TestApplyStateWritesAllDocuments(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	end := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)

	err := svc.ApplyState(ctx, subscriptiondomain.SyncPayload{
		OwnerUserID:            "user_1",
		PlanID:                 "host_monthly",
		Status:                 "active",
		Provider:               "stripe",
		ExternalCustomerID:     "cus_123",
		ExternalSubscriptionID: "sub_123",
		CurrentPeriodEnd:       &end,
		Source:                 entitlementdomain.SourceWebhook,
	})
	require.NoError(t, err)

	var org organizationdomain.Organization
	require.NoError(t, db.Where("owner_user_id = ?", "user_1").First(&org).Error)
	assert.Equal(t, "host_monthly", org.PlanID)
	assert.Equal(t, "active", org.SubscriptionStatus)
	require.NotNil(t, org.CurrentPeriodEnd)
	assert.True(t, end.Equal(*org.CurrentPeriodEnd))

	var record subscriptiondomain.SubscriptionRecord
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&record).Error)
	assert.Equal(t, "host_monthly", record.PlanID)
	assert.Equal(t, "cus_123", record.ExternalCustomerID)
	assert.Equal(t, "sub_123", record.ExternalSubscriptionID)

	var snap entitlementdomain.Snapshot
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&snap).Error)
	assert.Equal(t, entitlementdomain.SourceWebhook, snap.Source)
	assert.Equal(t, true, snap.Capabilities[catalog.CapAISongIntros])

	var profile organizationdomain.OwnerProfile
	require.NoError(t, db.Where("user_id = ?", "user_1").First(&profile).Error)
	assert.Equal(t, "host_monthly", profile.LegacyPlanID)
	assert.Equal(t, "active", profile.LegacyStatus)

	orgID, err := svc.ResolveOrg(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, org.ID, orgID)
}

func TestApplyStateUnknownPlanDefaultsToFree(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.ApplyState(context.Background(), subscriptiondomain.SyncPayload{
		OwnerUserID: "user_2",
		PlanID:      "plan_from_the_future",
		Status:      "active",
	})
	require.NoError(t, err)

	var org organizationdomain.Organization
	require.NoError(t, db.Where("owner_user_id = ?", "user_2").First(&org).Error)
	assert.Equal(t, catalog.FreePlanID, org.PlanID)

	var snap entitlementdomain.Snapshot
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&snap).Error)
	assert.Equal(t, false, snap.Capabilities[catalog.CapAISongIntros],
		"free plan grants no overrides even when entitled")
}

func TestApplyStateLastWriteWins(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ApplyState(ctx, subscriptiondomain.SyncPayload{
		OwnerUserID:            "user_3",
		PlanID:                 "host_monthly",
		Status:                 "active",
		ExternalSubscriptionID: "sub_lww",
	}))

	// A later delivery for the same subscription resolves the organization
	// through the reverse index and simply overwrites.
	require.NoError(t, svc.ApplyState(ctx, subscriptiondomain.SyncPayload{
		PlanID:                 "host_monthly",
		Status:                 "canceled",
		ExternalSubscriptionID: "sub_lww",
		CancelAtPeriodEnd:      true,
	}))

	var org organizationdomain.Organization
	require.NoError(t, db.Where("owner_user_id = ?", "user_3").First(&org).Error)
	assert.Equal(t, "canceled", org.SubscriptionStatus)

	var record subscriptiondomain.SubscriptionRecord
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&record).Error)
	assert.Equal(t, "canceled", record.Status)
	assert.True(t, record.CancelAtPeriodEnd)

	var count int64
	require.NoError(t, db.Model(&subscriptiondomain.SubscriptionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "one record per organization")
}

func TestApplyStateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ApplyState(ctx, subscriptiondomain.SyncPayload{
		OwnerUserID: "user_4",
		PlanID:      "host_monthly",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStatus)

	// No organization id, no known subscription, no owner: unresolvable.
	err = svc.ApplyState(ctx, subscriptiondomain.SyncPayload{
		PlanID: "host_monthly",
		Status: "active",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidOrganization)
}

func TestResolveOrgUnknownSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ResolveOrg(context.Background(), "sub_never_seen")
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidOrganization)
}

func TestGetRecordMissing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetRecord(context.Background(), 123)
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidOrganization)
}
