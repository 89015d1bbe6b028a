package server

import (
	"net/http"

	signupdomain "github.com/aquivis/aquivis/internal/signup/domain"
	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, sessionResponse{
		UserID:    result.Profile.ID.String(),
		Email:     result.Profile.Email,
		ExpiresAt: result.ExpiresAt.UTC(),
	})
}
