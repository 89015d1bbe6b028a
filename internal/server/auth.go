package server

import (
	"net/http"
	"strings"
	"time"

	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type companyMembership struct {
	CompanyID   string          `json:"company_id"`
	Role        teamdomain.Role `json:"role"`
	Permissions []string        `json:"permissions"`
}

type meResponse struct {
	ID         string             `json:"id"`
	Email      string             `json:"email"`
	FirstName  string             `json:"first_name"`
	LastName   string             `json:"last_name"`
	Name       string             `json:"name"`
	Membership *companyMembership `json:"membership"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		UserID:    result.User.ID.String(),
		Email:     result.User.Email,
		ExpiresAt: result.ExpiresAt.UTC(),
	})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

// Me returns the caller's profile and, once onboarded, their company role and
// the actions it grants.
func (s *Server) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.teamSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := meResponse{
		ID:        profile.ID.String(),
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Name:      profile.DisplayName(),
	}
	if profile.CompanyID != nil && profile.Role != nil {
		permissions, err := s.authzSvc.Permissions(*profile.Role)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		resp.Membership = &companyMembership{
			CompanyID:   profile.CompanyID.String(),
			Role:        *profile.Role,
			Permissions: permissions,
		}
	}

	c.JSON(http.StatusOK, resp)
}
