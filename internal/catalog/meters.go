package catalog

import (
	"errors"
	"math"
)

// ErrUnknownMeter is returned for meter ids not present in the rate card.
var ErrUnknownMeter = errors.New("invalid_meter")

// MeterDefinition describes one pay-per-use resource category. Included
// units, hard limits, pass-through costs and markup are keyed by plan id;
// absent plans get zero values.
type MeterDefinition struct {
	ID    string
	Label string
	Unit  string

	Included         map[string]int64
	HardLimit        map[string]int64
	PassThroughCents map[string]float64
	Markup           map[string]float64

	// FlatOverageRateCents applies when a plan has no pass-through cost.
	FlatOverageRateCents int64
}

// MeterQuota is the resolved per-plan quota snapshot for one meter.
type MeterQuota struct {
	Included         int64
	HardLimit        int64
	OverageRateCents int64
}

var meters = map[string]MeterDefinition{
	"catalog_search": {
		ID:    "catalog_search",
		Label: "Song catalog search",
		Unit:  "searches",
		Included: map[string]int64{
			"host_monthly":  5000,
			"host_yearly":   5000,
			"venue_monthly": 20000,
			"venue_yearly":  20000,
		},
		HardLimit: map[string]int64{
			"host_monthly":  15000,
			"host_yearly":   15000,
			"venue_monthly": 60000,
			"venue_yearly":  60000,
		},
		PassThroughCents:     map[string]float64{},
		Markup:               map[string]float64{},
		FlatOverageRateCents: 1,
	},
	"ai_generate_content": {
		ID:    "ai_generate_content",
		Label: "AI song intros",
		Unit:  "generations",
		Included: map[string]int64{
			"host_monthly":  750,
			"host_yearly":   750,
			"venue_monthly": 3000,
			"venue_yearly":  3000,
		},
		HardLimit: map[string]int64{
			"host_monthly":  2500,
			"host_yearly":   2500,
			"venue_monthly": 10000,
			"venue_yearly":  10000,
		},
		PassThroughCents: map[string]float64{
			"host_monthly":  2,
			"host_yearly":   2,
			"venue_monthly": 2,
			"venue_yearly":  2,
		},
		Markup: map[string]float64{
			"host_monthly":  1.5,
			"host_yearly":   1.5,
			"venue_monthly": 1.25,
			"venue_yearly":  1.25,
		},
		FlatOverageRateCents: 5,
	},
	"media_transcode": {
		ID:    "media_transcode",
		Label: "Video background transcode",
		Unit:  "minutes",
		Included: map[string]int64{
			"venue_monthly": 600,
			"venue_yearly":  600,
		},
		HardLimit: map[string]int64{
			"venue_monthly": 2400,
			"venue_yearly":  2400,
		},
		PassThroughCents: map[string]float64{
			"venue_monthly": 4,
			"venue_yearly":  4,
		},
		Markup: map[string]float64{
			"venue_monthly": 1.5,
			"venue_yearly":  1.5,
		},
		FlatOverageRateCents: 8,
	},
}

// MeterByID returns the meter definition for id.
func MeterByID(id string) (MeterDefinition, error) {
	def, ok := meters[id]
	if !ok {
		return MeterDefinition{}, ErrUnknownMeter
	}
	return def, nil
}

// MeterIDs lists every meter id in the rate card.
func MeterIDs() []string {
	ids := make([]string, 0, len(meters))
	for id := range meters {
		ids = append(ids, id)
	}
	return ids
}

// ResolveMeterQuota computes the quota snapshot for (meterID, planID, status).
// Everything is zero unless the status is entitled. The billable rate is
// pass-through cost times markup when a pass-through cost is configured,
// else the meter's flat overage rate. Overage pricing and the hard limit
// are configured independently: a meter may carry an overage rate even when
// its hard limit blocks further use.
func ResolveMeterQuota(meterID, planID, status string) (MeterQuota, error) {
	def, err := MeterByID(meterID)
	if err != nil {
		return MeterQuota{}, err
	}
	if !IsEntitledStatus(status) {
		return MeterQuota{}, nil
	}

	quota := MeterQuota{
		Included:  def.Included[planID],
		HardLimit: def.HardLimit[planID],
	}
	if pass := def.PassThroughCents[planID]; pass > 0 {
		markup := def.Markup[planID]
		if markup <= 0 {
			markup = 1
		}
		quota.OverageRateCents = int64(math.Round(pass * markup))
	} else {
		quota.OverageRateCents = def.FlatOverageRateCents
	}
	return quota, nil
}
