package server

import (
	"net/http"

	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	"github.com/gin-gonic/gin"
)

type createPropertyRequest struct {
	Name               string  `json:"name"`
	Address            *string `json:"address"`
	HasIndividualUnits bool    `json:"has_individual_units"`
	Timezone           string  `json:"timezone"`
}

type updatePropertyRequest struct {
	Name               *string `json:"name"`
	Address            *string `json:"address"`
	HasIndividualUnits *bool   `json:"has_individual_units"`
	Timezone           *string `json:"timezone"`
}

type createUnitRequest struct {
	Name         string   `json:"name"`
	UnitType     string   `json:"unit_type"`
	WaterType    string   `json:"water_type"`
	VolumeLitres *float64 `json:"volume_litres"`
	IsActive     *bool    `json:"is_active"`
}

func (s *Server) ListProperties(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	properties, err := s.propertySvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": properties})
}

func (s *Server) GetProperty(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	property, err := s.propertySvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": property})
}

func (s *Server) CreateProperty(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	property, err := s.propertySvc.Create(c.Request.Context(), actor, propertydomain.CreateRequest{
		Name:               req.Name,
		Address:            req.Address,
		HasIndividualUnits: req.HasIndividualUnits,
		Timezone:           req.Timezone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": property})
}

func (s *Server) UpdateProperty(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	property, err := s.propertySvc.Update(c.Request.Context(), actor, c.Param("id"), propertydomain.UpdateRequest{
		Name:               req.Name,
		Address:            req.Address,
		HasIndividualUnits: req.HasIndividualUnits,
		Timezone:           req.Timezone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": property})
}

func (s *Server) CreateUnit(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unit, err := s.propertySvc.AddUnit(c.Request.Context(), actor, c.Param("id"), propertydomain.UnitRequest{
		Name:         req.Name,
		UnitType:     req.UnitType,
		WaterType:    req.WaterType,
		VolumeLitres: req.VolumeLitres,
		IsActive:     req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": unit})
}
