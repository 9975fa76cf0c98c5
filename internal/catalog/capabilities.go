package catalog

// Capability keys. Every entitlement object carries all of them; unknown keys
// from external input are never trusted.
const (
	CapCatalogSearch    = "catalog_search"
	CapAISongIntros     = "ai_song_intros"
	CapVideoBackgrounds = "video_backgrounds"
	CapRemoveWatermark  = "remove_watermark"
	CapCustomBranding   = "custom_branding"
	CapMultiRoom        = "multi_room"
	CapAdvancedReports  = "advanced_reports"
	CapPrioritySupport  = "priority_support"
)

// baseCapabilities is the mostly-disabled set every organization starts from.
var baseCapabilities = map[string]bool{
	CapCatalogSearch:    true,
	CapAISongIntros:     false,
	CapVideoBackgrounds: false,
	CapRemoveWatermark:  false,
	CapCustomBranding:   false,
	CapMultiRoom:        false,
	CapAdvancedReports:  false,
	CapPrioritySupport:  false,
}

// entitledStatuses are subscription statuses that unlock plan capabilities.
// past_due stays entitled as a payment grace period.
var entitledStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
	"past_due": true,
}

// legacyTierCapabilities are force-enabled for pre-migration accounts
// carrying the named user-level tier flag. Upgrade only, never a downgrade.
var legacyTierCapabilities = map[string][]string{
	"vip":           {CapRemoveWatermark, CapVideoBackgrounds},
	"founding_host": {CapRemoveWatermark, CapVideoBackgrounds, CapCustomBranding},
}

// IsEntitledStatus reports whether status unlocks plan capabilities.
func IsEntitledStatus(status string) bool {
	return entitledStatuses[status]
}

// BaseCapabilities returns a copy of the base capability set.
func BaseCapabilities() map[string]bool {
	caps := make(map[string]bool, len(baseCapabilities))
	for k, v := range baseCapabilities {
		caps[k] = v
	}
	return caps
}

// CapabilitiesFor derives the capability set for a plan and status. Plan
// overrides apply only when the status is entitled; anything else yields
// the base set.
func CapabilitiesFor(planID, status string) map[string]bool {
	caps := BaseCapabilities()
	if !IsEntitledStatus(status) {
		return caps
	}
	for key, enabled := range PlanByID(planID).Capabilities {
		if _, known := caps[key]; known {
			caps[key] = enabled
		}
	}
	return caps
}

// ApplyLegacyTiers force-enables the capability subset granted by any
// recognized legacy tier flag. It never disables a capability.
func ApplyLegacyTiers(caps map[string]bool, tiers []string) {
	for _, tier := range tiers {
		for _, key := range legacyTierCapabilities[tier] {
			caps[key] = true
		}
	}
}
