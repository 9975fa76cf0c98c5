// Package domain contains persistence models for billing tenants.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrganizationStatus represents lifecycle states for a tenant.
type OrganizationStatus string

const (
	OrganizationStatusActive OrganizationStatus = "active"
)

// Organization is the billing and entitlement unit. One per owning user.
type Organization struct {
	ID          snowflake.ID       `gorm:"primaryKey"`
	OwnerUserID string             `gorm:"type:text;not null;uniqueIndex"`
	DisplayName string             `gorm:"type:text;not null"`
	Status      OrganizationStatus `gorm:"type:text;not null"`

	// Billing summary fields, written only by the subscription synchronizer.
	PlanID             string     `gorm:"type:text;not null;default:free"`
	SubscriptionStatus string     `gorm:"type:text;not null;default:inactive"`
	CurrentPeriodEnd   *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OwnerProfile carries the legacy per-user billing fields kept for
// pre-migration accounts. The synchronizer mirrors plan and status here.
type OwnerProfile struct {
	UserID       string    `gorm:"primaryKey;type:text"`
	LegacyPlanID string    `gorm:"type:text"`
	LegacyStatus string    `gorm:"type:text"`
	LegacyTier   string    `gorm:"type:text"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (OwnerProfile) TableName() string { return "owner_profiles" }
