package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanByIDUnknownFallsBackToFree(t *testing.T) {
	plan := PlanByID("enterprise_galactic")
	assert.Equal(t, FreePlanID, plan.ID)
	assert.Zero(t, plan.PriceCents)

	assert.False(t, KnownPlan("enterprise_galactic"))
	assert.True(t, KnownPlan("host_monthly"))
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		name   string
		planID string
		status string
		expect map[string]bool
	}{
		{
			name:   "host plan active unlocks overrides",
			planID: "host_monthly",
			status: "active",
			expect: map[string]bool{
				CapCatalogSearch:    true,
				CapAISongIntros:     true,
				CapVideoBackgrounds: true,
				CapRemoveWatermark:  true,
				CapCustomBranding:   true,
				CapMultiRoom:        false,
				CapAdvancedReports:  false,
				CapPrioritySupport:  false,
			},
		},
		{
			name:   "past_due stays entitled",
			planID: "venue_monthly",
			status: "past_due",
			expect: map[string]bool{
				CapCatalogSearch:    true,
				CapAISongIntros:     true,
				CapVideoBackgrounds: true,
				CapRemoveWatermark:  true,
				CapCustomBranding:   true,
				CapMultiRoom:        true,
				CapAdvancedReports:  true,
				CapPrioritySupport:  true,
			},
		},
		{
			name:   "canceled yields base set regardless of plan",
			planID: "venue_yearly",
			status: "canceled",
			expect: BaseCapabilities(),
		},
		{
			name:   "free plan active yields base set",
			planID: FreePlanID,
			status: "active",
			expect: BaseCapabilities(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, CapabilitiesFor(tt.planID, tt.status))
		})
	}
}

func TestCapabilitiesForIsDeterministicAndCopied(t *testing.T) {
	first := CapabilitiesFor("host_monthly", "active")
	first[CapMultiRoom] = true

	second := CapabilitiesFor("host_monthly", "active")
	assert.False(t, second[CapMultiRoom], "lookups must not share state")
	assert.Equal(t, CapabilitiesFor("host_monthly", "active"), second)
}

func TestApplyLegacyTiersUpgradeOnly(t *testing.T) {
	caps := BaseCapabilities()
	ApplyLegacyTiers(caps, []string{"vip"})
	assert.True(t, caps[CapRemoveWatermark])
	assert.True(t, caps[CapVideoBackgrounds])
	assert.False(t, caps[CapCustomBranding])

	ApplyLegacyTiers(caps, []string{"founding_host"})
	assert.True(t, caps[CapCustomBranding])

	// Unknown tiers change nothing, and a recognized tier never disables.
	before := make(map[string]bool, len(caps))
	for k, v := range caps {
		before[k] = v
	}
	ApplyLegacyTiers(caps, []string{"made_up_tier"})
	assert.Equal(t, before, caps)
}

func TestResolveMeterQuota(t *testing.T) {
	quota, err := ResolveMeterQuota("ai_generate_content", "host_monthly", "active")
	require.NoError(t, err)
	assert.Equal(t, MeterQuota{Included: 750, HardLimit: 2500, OverageRateCents: 3}, quota)

	// 2 cents pass-through at 1.25 markup rounds to 3.
	quota, err = ResolveMeterQuota("ai_generate_content", "venue_monthly", "trialing")
	require.NoError(t, err)
	assert.Equal(t, MeterQuota{Included: 3000, HardLimit: 10000, OverageRateCents: 3}, quota)

	quota, err = ResolveMeterQuota("media_transcode", "venue_monthly", "active")
	require.NoError(t, err)
	assert.Equal(t, MeterQuota{Included: 600, HardLimit: 2400, OverageRateCents: 6}, quota)

	// No pass-through cost falls back to the flat rate.
	quota, err = ResolveMeterQuota("catalog_search", "host_monthly", "active")
	require.NoError(t, err)
	assert.Equal(t, MeterQuota{Included: 5000, HardLimit: 15000, OverageRateCents: 1}, quota)
}

func TestResolveMeterQuotaUnentitledIsAllZero(t *testing.T) {
	for _, status := range []string{"canceled", "inactive", "incomplete", ""} {
		quota, err := ResolveMeterQuota("ai_generate_content", "host_monthly", status)
		require.NoError(t, err)
		assert.Equal(t, MeterQuota{}, quota, "status %q", status)
	}
}

func TestResolveMeterQuotaUnknownMeter(t *testing.T) {
	_, err := ResolveMeterQuota("teleportation", "host_monthly", "active")
	assert.ErrorIs(t, err, ErrUnknownMeter)
}

func TestMeterIDsCoversRateCard(t *testing.T) {
	ids := MeterIDs()
	assert.ElementsMatch(t, []string{"catalog_search", "ai_generate_content", "media_transcode"}, ids)
}
