package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Provider payloads are small; 1 MiB leaves generous headroom.
const maxWebhookBody = 1 << 20

func (s *Server) IngestPaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
