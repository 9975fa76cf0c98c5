package server

import (
	"errors"
	"net/http"

	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
	roomdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrPermissionDenied     = errors.New("permission_denied")
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrRateLimited          = errors.New("rate_limited")
	ErrBillingNotConfigured = errors.New("billing_not_configured")
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware translates domain errors into the gateway's error
// taxonomy after the handler chain runs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for the error middleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{Code: "unauthenticated", Message: "authentication required"}
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden, errorPayload{Code: "permission-denied", Message: "caller may not perform this operation"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Code: "resource-exhausted", Message: "rate limit exceeded"}
	case errors.Is(err, usagedomain.ErrQuotaExhausted):
		return http.StatusTooManyRequests, errorPayload{Code: "resource-exhausted", Message: "meter hard limit reached"}
	case errors.Is(err, ErrBillingNotConfigured):
		return http.StatusPreconditionFailed, errorPayload{Code: "failed-precondition", Message: "no billing profile for this organization"}

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalog.ErrUnknownMeter),
		errors.Is(err, usagedomain.ErrInvalidUnits),
		errors.Is(err, usagedomain.ErrInvalidPeriodKey),
		errors.Is(err, awarddomain.ErrInvalidAwardKey),
		errors.Is(err, awarddomain.ErrInvalidRoom),
		errors.Is(err, awarddomain.ErrNoValidAwards),
		errors.Is(err, awarddomain.ErrTooManyRecipients),
		errors.Is(err, organizationdomain.ErrInvalidOwner),
		errors.Is(err, subscriptiondomain.ErrInvalidStatus):
		return http.StatusBadRequest, errorPayload{Code: "invalid-argument", Message: err.Error()}

	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrMissingSecret):
		// Rejected delivery: the provider must retry, not treat this as done.
		return http.StatusBadRequest, errorPayload{Code: "invalid-argument", Message: "webhook signature verification failed"}
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return http.StatusUnprocessableEntity, errorPayload{Code: "data-loss", Message: "payload could not be parsed"}

	case errors.Is(err, roomdomain.ErrParticipantNotFound),
		errors.Is(err, organizationdomain.ErrOrganizationMissing),
		errors.Is(err, subscriptiondomain.ErrInvalidOrganization),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Code: "not-found", Message: err.Error()}

	case errors.Is(err, atomicstore.ErrRetryExhausted):
		// The effect may or may not have applied; callers must retry with
		// the same idempotency key.
		return http.StatusServiceUnavailable, errorPayload{Code: "unavailable", Message: "store transaction retries exhausted"}
	}

	return http.StatusInternalServerError, errorPayload{Code: "unavailable", Message: "internal error"}
}
