// Package domain contains persistence models and contracts for the usage
// meter ledger.
package domain

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrQuotaExhausted   = errors.New("quota_exhausted")
	ErrInvalidUnits     = errors.New("invalid_units")
	ErrInvalidPeriodKey = errors.New("invalid_period_key")
)

var periodKeyPattern = regexp.MustCompile(`^\d{6}$`)

// UsagePeriodRecord is one tenant's usage for one calendar month. The meters
// map holds meterID -> MeterUsage. Records are created lazily on first
// reservation and never deleted.
type UsagePeriodRecord struct {
	OrgID     snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	PeriodKey string            `gorm:"primaryKey;type:text"`
	Meters    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (UsagePeriodRecord) TableName() string { return "usage_period_records" }

// MeterUsage is the per-meter slice of a period record. The quota fields are
// a snapshot of the rate card at the time of the last reservation.
type MeterUsage struct {
	Used             int64     `json:"used"`
	Included         int64     `json:"included"`
	HardLimit        int64     `json:"hard_limit"`
	OverageRateCents int64     `json:"overage_rate_cents"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MeterSummary is the result of one reservation or one summary read.
type MeterSummary struct {
	MeterID               string `json:"meter_id"`
	PeriodKey             string `json:"period_key"`
	Used                  int64  `json:"used"`
	Included              int64  `json:"included"`
	HardLimit             int64  `json:"hard_limit"`
	OverageRateCents      int64  `json:"overage_rate_cents"`
	OverageUnits          int64  `json:"overage_units"`
	EstimatedOverageCents int64  `json:"estimated_overage_cents"`
}

// UsageSummary is the full per-meter snapshot for one period, including
// meters with zero usage so callers can always render the whole rate card.
type UsageSummary struct {
	OrganizationID snowflake.ID   `json:"organization_id"`
	PeriodKey      string         `json:"period_key"`
	Meters         []MeterSummary `json:"meters"`
}

// Service is the usage meter ledger.
type Service interface {
	// Reserve atomically adds units to the meter's counter for the current
	// period, failing with ErrQuotaExhausted when the hard limit would be
	// crossed. No partial write occurs on failure. Reserved units are billed
	// on attempt: a downstream call failing after reservation does not
	// refund them.
	Reserve(ctx context.Context, orgID snowflake.ID, meterID string, units int64) (MeterSummary, error)

	// Summary reads the full per-meter snapshot for the period.
	Summary(ctx context.Context, orgID snowflake.ID, periodKey string) (UsageSummary, error)
}

// PeriodKeyFor formats t as a YYYYMM period key.
func PeriodKeyFor(t time.Time) string {
	return t.UTC().Format("200601")
}

// ValidPeriodKey reports whether key matches YYYYMM.
func ValidPeriodKey(key string) bool {
	return periodKeyPattern.MatchString(key)
}
