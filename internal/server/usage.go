package server

import (
	"net/http"
	"strings"

	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/gin-gonic/gin"
)

type reserveUsageRequest struct {
	MeterID string `json:"meter_id" binding:"required"`
	Units   int64  `json:"units" binding:"required"`
}

func (s *Server) ReserveUsage(c *gin.Context) {
	var req reserveUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.usageSvc.Reserve(c.Request.Context(), org.ID, strings.TrimSpace(req.MeterID), req.Units)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) UsageSummary(c *gin.Context) {
	periodKey := strings.TrimSpace(c.Query("period"))
	if periodKey == "" {
		periodKey = usagedomain.PeriodKeyFor(s.now())
	}

	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.usageSvc.Summary(c.Request.Context(), org.ID, periodKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
