package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/invoice"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/gin-gonic/gin"
)

type checkoutSessionRequest struct {
	PlanID     string `json:"plan_id" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url" binding:"required"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	planID := strings.TrimSpace(req.PlanID)
	if !catalog.KnownPlan(planID) || catalog.PlanByID(planID).PriceCents <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	url, err := s.paymentSvc.CreateCheckoutSession(c.Request.Context(), paymentdomain.CheckoutSessionRequest{
		OrganizationID: org.ID,
		PlanID:         planID,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) CreatePortalSession(c *gin.Context) {
	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	url, err := s.paymentSvc.CreatePortalSession(c.Request.Context(), org.ID)
	if err != nil {
		// No subscription record means the tenant has never been through
		// checkout, so there is no provider customer to open a portal for.
		if errors.Is(err, subscriptiondomain.ErrInvalidOrganization) {
			err = ErrBillingNotConfigured
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) InvoiceDraft(c *gin.Context) {
	periodKey := strings.TrimSpace(c.Query("period"))
	if periodKey == "" {
		periodKey = usagedomain.PeriodKeyFor(s.now())
	}

	taxRate := 0.0
	if raw := strings.TrimSpace(c.Query("tax_rate")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		taxRate = parsed
	}

	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.usageSvc.Summary(c.Request.Context(), org.ID, periodKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ent := s.entitlementSvc.Resolve(c.Request.Context(), org.ID)
	draft := invoice.BuildDraft(org, ent, usage, invoice.Options{TaxRatePercent: taxRate})

	c.JSON(http.StatusOK, draft)
}
