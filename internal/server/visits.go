package server

import (
	"net/http"

	visitdomain "github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/gin-gonic/gin"
)

type listVisitsQuery struct {
	PropertyID    string `form:"propertyId"`
	PropertyIDAlt string `form:"property_id"`
	UnitID        string `form:"unitId"`
	UnitIDAlt     string `form:"unit_id"`
	Date          string `form:"date"`
	Status        string `form:"status"`
}

type createVisitRequest struct {
	PropertyID   string  `json:"property_id"`
	UnitID       *string `json:"unit_id"`
	TechnicianID *string `json:"technician_id"`
	ServiceDate  string  `json:"service_date"`
	Status       string  `json:"status"`
	Notes        *string `json:"notes"`
}

type updateVisitRequest struct {
	UnitID       *string `json:"unit_id"`
	TechnicianID *string `json:"technician_id"`
	ServiceDate  *string `json:"service_date"`
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
}

type waterTestRequest struct {
	PH          *float64 `json:"ph"`
	Chlorine    *float64 `json:"chlorine"`
	Bromine     *float64 `json:"bromine"`
	Alkalinity  *float64 `json:"alkalinity"`
	Calcium     *float64 `json:"calcium"`
	Cyanuric    *float64 `json:"cyanuric"`
	Salt        *float64 `json:"salt"`
	Turbidity   *float64 `json:"turbidity"`
	Temperature *float64 `json:"temperature"`
	Notes       *string  `json:"notes"`
}

type chemicalRequest struct {
	ChemicalType  string   `json:"chemical_type"`
	Quantity      float64  `json:"quantity"`
	UnitOfMeasure string   `json:"unit_of_measure"`
	Cost          *float64 `json:"cost"`
}

type maintenanceRequest struct {
	TaskType  string  `json:"task_type"`
	Completed bool    `json:"completed"`
	Notes     *string `json:"notes"`
}

func (s *Server) ListVisits(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listVisitsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	visits, err := s.visitSvc.List(c.Request.Context(), actor, visitdomain.ListRequest{
		PropertyID: firstNonEmpty(query.PropertyID, query.PropertyIDAlt),
		UnitID:     firstNonEmpty(query.UnitID, query.UnitIDAlt),
		Date:       query.Date,
		Status:     query.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": visits})
}

func (s *Server) GetVisit(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	visit, err := s.visitSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": visit})
}

func (s *Server) CreateVisit(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	visit, err := s.visitSvc.Create(c.Request.Context(), actor, visitdomain.CreateRequest{
		PropertyID:   req.PropertyID,
		UnitID:       req.UnitID,
		TechnicianID: req.TechnicianID,
		ServiceDate:  req.ServiceDate,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": visit})
}

func (s *Server) UpdateVisit(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	visit, err := s.visitSvc.Update(c.Request.Context(), actor, c.Param("id"), visitdomain.UpdateRequest{
		UnitID:       req.UnitID,
		TechnicianID: req.TechnicianID,
		ServiceDate:  req.ServiceDate,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": visit})
}

func (s *Server) AddWaterTest(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req waterTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	test, err := s.visitSvc.AddWaterTest(c.Request.Context(), actor, c.Param("id"), visitdomain.WaterTestRequest{
		PH:          req.PH,
		Chlorine:    req.Chlorine,
		Bromine:     req.Bromine,
		Alkalinity:  req.Alkalinity,
		Calcium:     req.Calcium,
		Cyanuric:    req.Cyanuric,
		Salt:        req.Salt,
		Turbidity:   req.Turbidity,
		Temperature: req.Temperature,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": test})
}

func (s *Server) AddChemical(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req chemicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	chemical, err := s.visitSvc.AddChemical(c.Request.Context(), actor, c.Param("id"), visitdomain.ChemicalRequest{
		ChemicalType:  req.ChemicalType,
		Quantity:      req.Quantity,
		UnitOfMeasure: req.UnitOfMeasure,
		Cost:          req.Cost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": chemical})
}

func (s *Server) AddMaintenanceTask(c *gin.Context) {
	actor, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	task, err := s.visitSvc.AddMaintenanceTask(c.Request.Context(), actor, c.Param("id"), visitdomain.MaintenanceRequest{
		TaskType:  req.TaskType,
		Completed: req.Completed,
		Notes:     req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": task})
}
