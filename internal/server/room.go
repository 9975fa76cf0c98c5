package server

import (
	"net/http"
	"strings"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/authctx"
	"github.com/gin-gonic/gin"
)

type joinRoomRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

func (s *Server) JoinRoom(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("room_id"))
	if roomID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id, _ := authctx.IdentityFromContext(c.Request.Context())
	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID == "" {
		participantID = id.UserID
	}
	// Guests only ever join as themselves.
	if participantID != id.UserID && id.Role == authctx.RoleGuest {
		AbortWithError(c, ErrPermissionDenied)
		return
	}

	participant, err := s.roomRepo.Join(c.Request.Context(), roomID, participantID, strings.TrimSpace(req.DisplayName))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

func (s *Server) ListParticipants(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("room_id"))
	if roomID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	participants, err := s.roomRepo.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}
