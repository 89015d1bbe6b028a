package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

type listActivityQuery struct {
	Limit     string `form:"limit"`
	Category  string `form:"category"`
	PageToken string `form:"page_token"`
}

func (s *Server) ListActivity(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit, err := parseOptionalInt(query.Limit)
	if err != nil {
		AbortWithError(c, auditdomain.ErrInvalidLimit)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListActivityRequest{
		CompanyID: actor.CompanyID,
		Category:  strings.TrimSpace(query.Category),
		Limit:     limit,
		PageToken: strings.TrimSpace(query.PageToken),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": resp.Activities, "page_info": resp.PageInfo})
}
