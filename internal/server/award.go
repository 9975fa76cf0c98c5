package server

import (
	"net/http"
	"strings"

	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	"github.com/gin-gonic/gin"
)

type applyAwardsRequest struct {
	AwardKey string              `json:"award_key" binding:"required"`
	Awards   []awarddomain.Award `json:"awards" binding:"required"`
	Source   string              `json:"source"`
}

func (s *Server) ApplyAwards(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("room_id"))
	if roomID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req applyAwardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	result, err := s.awardSvc.ApplyOnce(c.Request.Context(), roomID, strings.TrimSpace(req.AwardKey), req.Awards, source)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
