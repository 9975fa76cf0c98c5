package server

import (
	"net/http"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/authctx"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/catalog"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// callerOrg resolves the caller's organization, creating it on first touch.
func (s *Server) callerOrg(c *gin.Context) (*organizationdomain.Organization, error) {
	id, ok := authctx.IdentityFromContext(c.Request.Context())
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.organizationSvc.EnsureForOwner(c.Request.Context(), id.UserID, "")
}

func (s *Server) ResolveEntitlements(c *gin.Context) {
	org, err := s.callerOrg(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ent := s.entitlementSvc.Resolve(c.Request.Context(), org.ID)
	// Edge-asserted legacy tiers are a second upgrade-only source on top of
	// the persisted owner profile. Unrecognized tiers are no-ops.
	if id, ok := authctx.IdentityFromContext(c.Request.Context()); ok {
		catalog.ApplyLegacyTiers(ent.Capabilities, id.LegacyTiers)
	}
	c.JSON(http.StatusOK, ent)
}

func (s *Server) ResolveEntitlementsByOrg(c *gin.Context) {
	orgID, err := snowflake.ParseString(c.Param("org_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	c.JSON(http.StatusOK, s.entitlementSvc.Resolve(c.Request.Context(), orgID))
}
