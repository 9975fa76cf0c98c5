package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidStatus       = errors.New("invalid_status")
)

// SyncPayload is the authoritative latest subscription state for one external
// subscription. Provider callbacks are delivered at least once and may arrive
// out of order; the synchronizer applies a last-write-wins merge.
type SyncPayload struct {
	OrganizationID         snowflake.ID
	OwnerUserID            string
	PlanID                 string
	Status                 string
	Provider               string
	ExternalCustomerID     string
	ExternalSubscriptionID string
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	// Source records what produced this write (checkout, webhook, manual)
	// so entitlement resolution can tell an override from a derived state.
	Source string
}

// Service applies subscription state transitions.
type Service interface {
	// ApplyState writes the payload as the tenant's current billing state in
	// one multi-document commit: organization summary fields, the
	// SubscriptionRecord, the entitlement snapshot, the owner's legacy
	// profile fields, and the external-subscription reverse index.
	ApplyState(ctx context.Context, payload SyncPayload) error

	// ResolveOrg maps an external subscription id onto its organization via
	// the reverse index.
	ResolveOrg(ctx context.Context, externalSubscriptionID string) (snowflake.ID, error)

	GetRecord(ctx context.Context, orgID snowflake.ID) (*SubscriptionRecord, error)
}
