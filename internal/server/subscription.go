package server

import (
	"net/http"
	"strings"
	"time"

	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type syncSubscriptionRequest struct {
	OrganizationID         string     `json:"organization_id"`
	OwnerUserID            string     `json:"owner_user_id"`
	PlanID                 string     `json:"plan_id" binding:"required"`
	Status                 string     `json:"status" binding:"required"`
	Provider               string     `json:"provider"`
	ExternalCustomerID     string     `json:"external_customer_id"`
	ExternalSubscriptionID string     `json:"external_subscription_id"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
}

// SyncSubscription lets operators push an authoritative subscription state
// without a provider callback, for support fixes and backfills.
func (s *Server) SyncSubscription(c *gin.Context) {
	var req syncSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var orgID snowflake.ID
	if raw := strings.TrimSpace(req.OrganizationID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		orgID = parsed
	}

	err := s.subscriptionSvc.ApplyState(c.Request.Context(), subscriptiondomain.SyncPayload{
		OrganizationID:         orgID,
		OwnerUserID:            strings.TrimSpace(req.OwnerUserID),
		PlanID:                 strings.TrimSpace(req.PlanID),
		Status:                 strings.TrimSpace(req.Status),
		Provider:               strings.TrimSpace(req.Provider),
		ExternalCustomerID:     strings.TrimSpace(req.ExternalCustomerID),
		ExternalSubscriptionID: strings.TrimSpace(req.ExternalSubscriptionID),
		CurrentPeriodEnd:       req.CurrentPeriodEnd,
		CancelAtPeriodEnd:      req.CancelAtPeriodEnd,
		Source:                 entitlementdomain.SourceManual,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}
