package invoice

import (
	"testing"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostUsage() usagedomain.UsageSummary {
	return usagedomain.UsageSummary{
		OrganizationID: 42,
		PeriodKey:      "202603",
		Meters: []usagedomain.MeterSummary{
			{
				MeterID:               "catalog_search",
				PeriodKey:             "202603",
				Used:                  4000,
				Included:              5000,
				HardLimit:             15000,
				OverageRateCents:      1,
				OverageUnits:          0,
				EstimatedOverageCents: 0,
			},
			{
				MeterID:               "ai_generate_content",
				PeriodKey:             "202603",
				Used:                  1000,
				Included:              750,
				HardLimit:             2500,
				OverageRateCents:      3,
				OverageUnits:          250,
				EstimatedOverageCents: 750,
			},
		},
	}
}

func hostEntitlement() entitlementdomain.Entitlement {
	return entitlementdomain.Entitlement{
		OrganizationID: 42,
		PlanID:         "host_monthly",
		Status:         "active",
		Capabilities:   catalog.CapabilitiesFor("host_monthly", "active"),
	}
}

func TestBuildDraftTotals(t *testing.T) {
	org := &organizationdomain.Organization{ID: 42, DisplayName: "Beau's Bar"}
	draft := BuildDraft(org, hostEntitlement(), hostUsage(), Options{TaxRatePercent: 10})

	assert.Equal(t, "Beau's Bar", draft.OrganizationName)
	assert.Equal(t, "host_monthly", draft.PlanID)
	assert.Equal(t, "202603", draft.PeriodKey)

	require.Len(t, draft.Lines, 2)
	assert.Equal(t, LineBasePlan, draft.Lines[0].Kind)
	assert.Equal(t, int64(1900), draft.Lines[0].AmountCents)

	assert.Equal(t, LineOverage, draft.Lines[1].Kind)
	assert.Equal(t, "ai_generate_content", draft.Lines[1].MeterID)
	assert.Equal(t, int64(250), draft.Lines[1].Quantity)
	assert.Equal(t, int64(3), draft.Lines[1].UnitCents)
	assert.Equal(t, int64(750), draft.Lines[1].AmountCents)

	assert.Equal(t, int64(2650), draft.SubtotalCents)
	assert.Equal(t, int64(265), draft.TaxCents)
	assert.Equal(t, draft.SubtotalCents+draft.TaxCents, draft.TotalCents)
}

func TestBuildDraftRateCardSnapshotCoversAllMeters(t *testing.T) {
	draft := BuildDraft(nil, hostEntitlement(), hostUsage(), Options{})

	require.Len(t, draft.RateCard, 2)
	assert.Equal(t, "ai_generate_content", draft.RateCard[0].MeterID)
	assert.Equal(t, int64(750), draft.RateCard[0].Included)
	assert.Equal(t, int64(2500), draft.RateCard[0].HardLimit)
	assert.Equal(t, "catalog_search", draft.RateCard[1].MeterID)
}

func TestBuildDraftUnentitledHasNoBasePlanLine(t *testing.T) {
	ent := hostEntitlement()
	ent.Status = "canceled"

	draft := BuildDraft(nil, ent, hostUsage(), Options{})
	for _, line := range draft.Lines {
		assert.NotEqual(t, LineBasePlan, line.Kind)
	}
}

func TestBuildDraftFreePlanHasNoBasePlanLine(t *testing.T) {
	ent := hostEntitlement()
	ent.PlanID = catalog.FreePlanID

	usage := usagedomain.UsageSummary{OrganizationID: 42, PeriodKey: "202603"}
	draft := BuildDraft(nil, ent, usage, Options{TaxRatePercent: 10})
	assert.Empty(t, draft.Lines)
	assert.Zero(t, draft.SubtotalCents)
	assert.Zero(t, draft.TaxCents)
	assert.Zero(t, draft.TotalCents)
}

func TestBuildDraftSkipsUnbillableOverage(t *testing.T) {
	usage := hostUsage()
	for i := range usage.Meters {
		usage.Meters[i].OverageRateCents = 0
	}

	draft := BuildDraft(nil, hostEntitlement(), usage, Options{})
	require.Len(t, draft.Lines, 1)
	assert.Equal(t, LineBasePlan, draft.Lines[0].Kind)
}

func TestBuildDraftIsDeterministic(t *testing.T) {
	org := &organizationdomain.Organization{ID: 42, DisplayName: "Beau's Bar"}
	first := BuildDraft(org, hostEntitlement(), hostUsage(), Options{TaxRatePercent: 7.25})
	second := BuildDraft(org, hostEntitlement(), hostUsage(), Options{TaxRatePercent: 7.25})
	assert.Equal(t, first, second)
}
