// Package domain contains persistence models for subscription state.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionRecord is the single source of truth for a tenant's billing
// status. One per organization; mutated only by the state synchronizer.
type SubscriptionRecord struct {
	OrgID                  snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	PlanID                 string       `gorm:"type:text;not null"`
	Status                 string       `gorm:"type:text;not null"`
	Provider               string       `gorm:"type:text"`
	ExternalCustomerID     string       `gorm:"type:text"`
	ExternalSubscriptionID string       `gorm:"type:text;index"`
	CurrentPeriodEnd       *time.Time   `gorm:""`
	CancelAtPeriodEnd      bool         `gorm:"not null;default:false"`
	UpdatedAt              time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (SubscriptionRecord) TableName() string { return "subscription_records" }

// SubscriptionRef is the reverse index from an external subscription id to
// the organization, so later provider callbacks resolve without a search.
type SubscriptionRef struct {
	ExternalSubscriptionID string       `gorm:"primaryKey;type:text"`
	OrgID                  snowflake.ID `gorm:"not null;index"`
	Provider               string       `gorm:"type:text"`
	UpdatedAt              time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (SubscriptionRef) TableName() string { return "subscription_refs" }
