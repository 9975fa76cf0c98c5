// Package domain contains the derived entitlement types and their persisted
// snapshot form.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Snapshot sources. A manual source survives re-derivation so support can
// override capabilities per tenant.
const (
	SourceDerived  = "derived"
	SourceCheckout = "checkout"
	SourceWebhook  = "webhook"
	SourceManual   = "manual"
)

// Snapshot is the persisted capability map for an organization, recorded
// together with how it was produced.
type Snapshot struct {
	OrgID        snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	PlanID       string            `gorm:"type:text;not null"`
	Status       string            `gorm:"type:text;not null"`
	Capabilities datatypes.JSONMap `gorm:"type:jsonb"`
	Source       string            `gorm:"type:text;not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "entitlement_snapshots" }

// Entitlement is what an organization is currently allowed to do.
type Entitlement struct {
	OrganizationID    snowflake.ID    `json:"organization_id"`
	PlanID            string          `json:"plan_id"`
	Status            string          `json:"status"`
	Capabilities      map[string]bool `json:"capabilities"`
	Provider          string          `json:"provider,omitempty"`
	RenewalAt         *time.Time      `json:"renewal_at,omitempty"`
	CancelAtPeriodEnd bool            `json:"cancel_at_period_end"`
}

// Service derives entitlements for tenants.
type Service interface {
	// Resolve never fails: an absent organization or a store error yields
	// the inactive free-plan default so callers can render a degraded state.
	Resolve(ctx context.Context, orgID snowflake.ID) Entitlement
}
