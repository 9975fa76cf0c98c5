// Package domain contains payment-provider event types and contracts.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrMissingSecret    = errors.New("webhook_secret_missing")
)

// EventKind is the subset of provider event types the synchronizer handles.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

// Event is a verified, parsed provider callback.
type Event struct {
	ID       string
	Kind     EventKind
	Provider string

	OrganizationID         snowflake.ID
	OwnerUserID            string
	PlanID                 string
	Status                 string
	ExternalCustomerID     string
	ExternalSubscriptionID string
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool

	// Checkout-only fields. A purchase can carry an in-room point boost;
	// that side channel has no natural idempotency, so checkout events
	// deduplicate on the session id before applying it.
	CheckoutSessionID string
	RoomCode          string
	BoostRecipientID  string
	BoostPoints       int64
}

// WebhookEvent is the dedup record for provider deliveries with side effects.
type WebhookEvent struct {
	EventID   string       `gorm:"primaryKey;type:text"`
	Provider  string       `gorm:"type:text;not null"`
	Kind      string       `gorm:"type:text;not null"`
	OrgID     snowflake.ID `gorm:"index"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "payment_webhook_events" }

// Service ingests provider callbacks and creates provider-hosted sessions.
type Service interface {
	// IngestWebhook verifies the delivery signature, parses the payload and
	// applies it. A signature or parse failure is returned as an error so
	// the provider retries; an unhandled event type is accepted and ignored.
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error

	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (string, error)
	CreatePortalSession(ctx context.Context, orgID snowflake.ID) (string, error)
}

// CheckoutSessionRequest asks the provider for a hosted checkout page.
type CheckoutSessionRequest struct {
	OrganizationID snowflake.ID `json:"organization_id"`
	PlanID         string       `json:"plan_id"`
	SuccessURL     string       `json:"success_url"`
	CancelURL      string       `json:"cancel_url"`
}
