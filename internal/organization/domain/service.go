package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidOwner        = errors.New("invalid_owner")
	ErrOrganizationMissing = errors.New("invalid_organization")
)

// Service manages tenant records.
type Service interface {
	// EnsureForOwner returns the owner's organization, creating it on first
	// use. The organization id is derived deterministically from the owner
	// id, so concurrent first calls converge on the same row.
	EnsureForOwner(ctx context.Context, ownerUserID, displayName string) (*Organization, error)
	GetByID(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	GetByOwner(ctx context.Context, ownerUserID string) (*Organization, error)
}
