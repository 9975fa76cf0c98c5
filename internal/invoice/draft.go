// Package invoice compiles billable drafts from usage snapshots. Pure
// computation: no I/O, no clock, fully deterministic for identical inputs.
package invoice

import (
	"fmt"
	"math"
	"sort"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
)

// Line kinds.
const (
	LineBasePlan = "base_plan"
	LineOverage  = "overage"
)

// Options tune draft generation.
type Options struct {
	TaxRatePercent float64
}

// LineItem is one billable row.
type LineItem struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	MeterID     string `json:"meter_id,omitempty"`
	Quantity    int64  `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
	AmountCents int64  `json:"amount_cents"`
}

// RateCardLine freezes the rate-card values a draft was priced with. A later
// rate-card change never silently alters a previously generated draft.
type RateCardLine struct {
	MeterID          string `json:"meter_id"`
	Included         int64  `json:"included"`
	HardLimit        int64  `json:"hard_limit"`
	OverageRateCents int64  `json:"overage_rate_cents"`
}

// Draft is the compiled billable draft.
type Draft struct {
	OrganizationID   string         `json:"organization_id"`
	OrganizationName string         `json:"organization_name"`
	PlanID           string         `json:"plan_id"`
	PeriodKey        string         `json:"period_key"`
	Lines            []LineItem     `json:"lines"`
	SubtotalCents    int64          `json:"subtotal_cents"`
	TaxRatePercent   float64        `json:"tax_rate_percent"`
	TaxCents         int64          `json:"tax_cents"`
	TotalCents       int64          `json:"total_cents"`
	RateCard         []RateCardLine `json:"rate_card"`
}

// BuildDraft compiles a draft from the tenant's entitlements and one period's
// usage summary. The base-plan line appears only when the tenant is entitled
// and the plan has a price; each meter with billable overage gets one line.
func BuildDraft(
	org *organizationdomain.Organization,
	ent entitlementdomain.Entitlement,
	usage usagedomain.UsageSummary,
	opts Options,
) Draft {
	draft := Draft{
		OrganizationID: usage.OrganizationID.String(),
		PlanID:         ent.PlanID,
		PeriodKey:      usage.PeriodKey,
		TaxRatePercent: opts.TaxRatePercent,
	}
	if org != nil {
		draft.OrganizationName = org.DisplayName
	}

	plan := catalog.PlanByID(ent.PlanID)
	if catalog.IsEntitledStatus(ent.Status) && plan.PriceCents > 0 {
		draft.Lines = append(draft.Lines, LineItem{
			Kind:        LineBasePlan,
			Description: plan.DisplayName,
			Quantity:    1,
			UnitCents:   plan.PriceCents,
			AmountCents: plan.PriceCents,
		})
	}

	meters := append([]usagedomain.MeterSummary(nil), usage.Meters...)
	sort.Slice(meters, func(i, j int) bool { return meters[i].MeterID < meters[j].MeterID })

	for _, meter := range meters {
		draft.RateCard = append(draft.RateCard, RateCardLine{
			MeterID:          meter.MeterID,
			Included:         meter.Included,
			HardLimit:        meter.HardLimit,
			OverageRateCents: meter.OverageRateCents,
		})
		if meter.OverageUnits <= 0 || meter.OverageRateCents <= 0 {
			continue
		}
		draft.Lines = append(draft.Lines, LineItem{
			Kind:        LineOverage,
			Description: fmt.Sprintf("%s overage", meter.MeterID),
			MeterID:     meter.MeterID,
			Quantity:    meter.OverageUnits,
			UnitCents:   meter.OverageRateCents,
			AmountCents: meter.OverageUnits * meter.OverageRateCents,
		})
	}

	for _, line := range draft.Lines {
		draft.SubtotalCents += line.AmountCents
	}
	draft.TaxCents = int64(math.Round(float64(draft.SubtotalCents) * opts.TaxRatePercent / 100))
	draft.TotalCents = draft.SubtotalCents + draft.TaxCents
	return draft
}
