package server

import (
	"net/http"

	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	"github.com/gin-gonic/gin"
)

type onboardingRequest struct {
	CompanyName    string `json:"company_name"`
	CompanyNameAlt string `json:"companyName"`
	Timezone       string `json:"timezone"`
}

type updateCompanyRequest struct {
	Name                      string  `json:"name"`
	Timezone                  string  `json:"timezone"`
	BusinessAddress           *string `json:"business_address"`
	BusinessAddressStreet     *string `json:"business_address_street"`
	BusinessAddressCity       *string `json:"business_address_city"`
	BusinessAddressState      *string `json:"business_address_state"`
	BusinessAddressPostalCode *string `json:"business_address_postal_code"`
	BusinessAddressCountry    *string `json:"business_address_country"`
	Phone                     *string `json:"phone"`
	Website                   *string `json:"website"`
	TaxID                     *string `json:"tax_id"`
}

func (s *Server) CompleteOnboarding(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req onboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	company, err := s.companySvc.Onboard(c.Request.Context(), userID, companydomain.OnboardRequest{
		CompanyName: firstNonEmpty(req.CompanyName, req.CompanyNameAlt),
		Timezone:    req.Timezone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": company})
}

func (s *Server) GetCompany(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	company, err := s.companySvc.Get(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": company})
}

func (s *Server) UpdateCompany(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	company, err := s.companySvc.Update(c.Request.Context(), actor, companydomain.UpdateRequest{
		Name:                      req.Name,
		Timezone:                  req.Timezone,
		BusinessAddress:           req.BusinessAddress,
		BusinessAddressStreet:     req.BusinessAddressStreet,
		BusinessAddressCity:       req.BusinessAddressCity,
		BusinessAddressState:      req.BusinessAddressState,
		BusinessAddressPostalCode: req.BusinessAddressPostalCode,
		BusinessAddressCountry:    req.BusinessAddressCountry,
		Phone:                     req.Phone,
		Website:                   req.Website,
		TaxID:                     req.TaxID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": company})
}
