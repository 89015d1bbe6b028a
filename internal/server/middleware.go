package server

import (
	obscontext "github.com/aquivis/aquivis/internal/observability/context"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	contextUserIDKey     = "user_id"
	contextMembershipKey = "membership"
	actorTypeUser        = "user"
)

// AuthRequired resolves the session token to a user id or aborts with 401.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, session.UserID)
		ctx := obscontext.WithActor(c.Request.Context(), actorTypeUser, session.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CompanyRequired resolves the caller's company and role. Callers without a
// company get 404.
func (s *Server) CompanyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		membership, err := s.teamSvc.Resolve(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextMembershipKey, *membership)
		ctx := obscontext.WithCompanyID(c.Request.Context(), membership.CompanyID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(snowflake.ID)
	return userID, ok && userID != 0
}

func membershipFromContext(c *gin.Context) (teamdomain.Membership, bool) {
	value, ok := c.Get(contextMembershipKey)
	if !ok {
		return teamdomain.Membership{}, false
	}
	membership, ok := value.(teamdomain.Membership)
	return membership, ok
}
