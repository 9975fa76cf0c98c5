package server

import (
	"strings"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/authctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity headers set by the edge proxy after session validation. The
// gateway trusts them; it never sees raw credentials.
const (
	HeaderUserID     = "X-User-ID"
	HeaderUserRole   = "X-User-Role"
	HeaderLegacyTier = "X-Legacy-Tiers"
	HeaderRequestID  = "X-Request-ID"
)

// RequestIDMiddleware attaches a request id, generating one when the edge
// did not.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// IdentityMiddleware copies the proxy identity headers into the request
// context. Absent headers leave the request anonymous; RequireAuth decides
// whether that is acceptable.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.Next()
			return
		}

		role := authctx.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		switch role {
		case authctx.RoleHost, authctx.RoleGuest, authctx.RoleAdmin:
		default:
			role = authctx.RoleGuest
		}

		var tiers []string
		for _, tier := range strings.Split(c.GetHeader(HeaderLegacyTier), ",") {
			if tier = strings.TrimSpace(tier); tier != "" {
				tiers = append(tiers, tier)
			}
		}

		ctx := authctx.WithIdentity(c.Request.Context(), authctx.Identity{
			UserID:      userID,
			Role:        role,
			LegacyTiers: tiers,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authctx.IsAnonymous(c.Request.Context()) {
			AbortWithError(c, ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// RequireRole restricts a route to the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[authctx.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[authctx.Role(role)] = struct{}{}
	}
	return func(c *gin.Context) {
		id, ok := authctx.IdentityFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthenticated)
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			AbortWithError(c, ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware throttles per caller. Redis failures fail open.
func (s *Server) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.bucket == nil {
			c.Next()
			return
		}
		id, ok := authctx.IdentityFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := s.bucket.Allow(c.Request.Context(), id.UserID,
			s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !result.Allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
