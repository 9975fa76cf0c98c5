// Package catalog holds the static plan and meter rate card. It is immutable,
// process-wide configuration: every lookup copies before returning so callers
// can never mutate the canonical tables.
package catalog

// BillingInterval is how often a plan renews.
type BillingInterval string

const (
	IntervalNone  BillingInterval = "none"
	IntervalMonth BillingInterval = "month"
	IntervalYear  BillingInterval = "year"
)

// Plan describes one subscription tier.
type Plan struct {
	ID          string
	DisplayName string
	Tier        string
	Interval    BillingInterval
	PriceCents  int64
	// Capabilities are overrides applied on top of the base capability set
	// when the subscription status is entitled.
	Capabilities map[string]bool
}

const FreePlanID = "free"

var plans = map[string]Plan{
	FreePlanID: {
		ID:          FreePlanID,
		DisplayName: "Free",
		Tier:        "free",
		Interval:    IntervalNone,
		PriceCents:  0,
	},
	"host_monthly": {
		ID:          "host_monthly",
		DisplayName: "Host",
		Tier:        "host",
		Interval:    IntervalMonth,
		PriceCents:  1900,
		Capabilities: map[string]bool{
			CapAISongIntros:     true,
			CapVideoBackgrounds: true,
			CapRemoveWatermark:  true,
			CapCustomBranding:   true,
		},
	},
	"host_yearly": {
		ID:          "host_yearly",
		DisplayName: "Host (annual)",
		Tier:        "host",
		Interval:    IntervalYear,
		PriceCents:  19000,
		Capabilities: map[string]bool{
			CapAISongIntros:     true,
			CapVideoBackgrounds: true,
			CapRemoveWatermark:  true,
			CapCustomBranding:   true,
		},
	},
	"venue_monthly": {
		ID:          "venue_monthly",
		DisplayName: "Venue",
		Tier:        "venue",
		Interval:    IntervalMonth,
		PriceCents:  4900,
		Capabilities: map[string]bool{
			CapAISongIntros:     true,
			CapVideoBackgrounds: true,
			CapRemoveWatermark:  true,
			CapCustomBranding:   true,
			CapMultiRoom:        true,
			CapAdvancedReports:  true,
			CapPrioritySupport:  true,
		},
	},
	"venue_yearly": {
		ID:          "venue_yearly",
		DisplayName: "Venue (annual)",
		Tier:        "venue",
		Interval:    IntervalYear,
		PriceCents:  49000,
		Capabilities: map[string]bool{
			CapAISongIntros:     true,
			CapVideoBackgrounds: true,
			CapRemoveWatermark:  true,
			CapCustomBranding:   true,
			CapMultiRoom:        true,
			CapAdvancedReports:  true,
			CapPrioritySupport:  true,
		},
	},
}

// PlanByID returns the canonical plan for id; unknown ids fall back to free.
func PlanByID(id string) Plan {
	if plan, ok := plans[id]; ok {
		return plan.clone()
	}
	return plans[FreePlanID].clone()
}

// KnownPlan reports whether id names a canonical plan.
func KnownPlan(id string) bool {
	_, ok := plans[id]
	return ok
}

// Plans returns every canonical plan.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, plan.clone())
	}
	return out
}

func (p Plan) clone() Plan {
	if p.Capabilities == nil {
		return p
	}
	caps := make(map[string]bool, len(p.Capabilities))
	for k, v := range p.Capabilities {
		caps[k] = v
	}
	p.Capabilities = caps
	return p
}
