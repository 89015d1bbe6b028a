package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/aquivis/aquivis/internal/observability/logger"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInvitationRequest struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	UserIDAlt string `json:"userId"`
}

func (s *Server) InviteMember(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invitation, err := s.inviteSvc.Create(c.Request.Context(), actor, invitationdomain.CreateRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "invitation": invitation})
}

func (s *Server) ListInvitations(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	invitations, err := s.inviteSvc.ListPending(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (s *Server) DeleteInvitation(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "required", "invitation id is required"))
		return
	}

	if err := s.inviteSvc.Delete(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AcceptInvitationRedirect is the target of the emailed link. It checks the
// token without consuming it and sends the browser to signup with the
// invitation context, or to an error variant.
func (s *Server) AcceptInvitationRedirect(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		s.redirect(c, "/signup", url.Values{"error": {"invalid_token"}})
		return
	}

	invitation, err := s.inviteSvc.Inspect(c.Request.Context(), token)
	switch {
	case err == nil:
		s.redirect(c, "/signup", url.Values{
			"invite":  {"true"},
			"email":   {invitation.Email},
			"company": {invitation.CompanyID.String()},
			"role":    {string(invitation.Role)},
			"token":   {token},
		})
	case errors.Is(err, invitationdomain.ErrAlreadyAccepted):
		s.redirect(c, "/login", url.Values{"message": {"invitation_already_accepted"}})
	case errors.Is(err, invitationdomain.ErrExpired):
		s.redirect(c, "/signup", url.Values{"error": {"invitation_expired"}})
	case errors.Is(err, invitationdomain.ErrInvalidInvitation):
		s.redirect(c, "/signup", url.Values{"error": {"invalid_invitation"}})
	default:
		logger.FromContext(c.Request.Context()).Error("inspect invitation failed", zap.Error(err))
		s.redirect(c, "/signup", url.Values{"error": {"server_error"}})
	}
}

// AcceptInvitation consumes a token for the caller. A valid session wins over
// the user id in the body; without one the body must name the user.
func (s *Server) AcceptInvitation(c *gin.Context) {
	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		AbortWithError(c, newValidationError("token", "required", "token is required"))
		return
	}

	var bodyUserID snowflake.ID
	if raw := strings.TrimSpace(firstNonEmpty(req.UserID, req.UserIDAlt)); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
			return
		}
		bodyUserID = parsed
	}

	userID := bodyUserID
	if sessionUserID, ok := s.optionalSessionUserID(c); ok {
		if bodyUserID != 0 && bodyUserID != sessionUserID {
			AbortWithError(c, ErrForbidden)
			return
		}
		userID = sessionUserID
	}
	if userID == 0 {
		AbortWithError(c, newValidationError("user_id", "required", "user id is required"))
		return
	}

	if err := s.inviteSvc.Accept(c.Request.Context(), token, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// optionalSessionUserID authenticates the request when it carries a session
// and ignores invalid ones.
func (s *Server) optionalSessionUserID(c *gin.Context) (snowflake.ID, bool) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return 0, false
	}
	session, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return 0, false
	}
	return session.UserID, true
}

func (s *Server) redirect(c *gin.Context, path string, query url.Values) {
	c.Redirect(http.StatusFound, s.cfg.AppBaseURL+path+"?"+query.Encode())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
