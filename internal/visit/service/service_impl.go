package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	propertyservice "github.com/aquivis/aquivis/internal/property/service"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout      = "2006-01-02"
	maxNotesLength  = 2000
	maxLabelLength  = 100
	minTemperatureC = -10
	maxTemperatureC = 60
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	PropertyRepo propertydomain.Repository
	TeamRepo     teamdomain.Repository
	Authz        authorization.Service
	Audit        auditdomain.Service
	Clock        clock.Clock
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	propertyRepo propertydomain.Repository
	teamRepo     teamdomain.Repository
	authz        authorization.Service
	audit        auditdomain.Service
	clock        clock.Clock
	metrics      *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("visit.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		propertyRepo: p.PropertyRepo,
		teamRepo:     p.TeamRepo,
		authz:        p.Authz,
		audit:        p.Audit,
		clock:        p.Clock,
		metrics:      p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, actor teamdomain.Membership, req domain.ListRequest) ([]domain.VisitResponse, error) {
	var (
		filter domain.ListFilter
		err    error
	)
	if strings.TrimSpace(req.PropertyID) != "" {
		if filter.PropertyID, err = propertyservice.ParseID(req.PropertyID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.UnitID) != "" {
		if filter.UnitID, err = parseID(req.UnitID, domain.ErrInvalidUnitID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Date) != "" {
		day, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		filter.Date = &day
	}
	if strings.TrimSpace(req.Status) != "" {
		if filter.Status, err = domain.ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceView); err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VisitResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor teamdomain.Membership, rawID string) (*domain.VisitDetail, error) {
	id, err := parseID(rawID, domain.ErrInvalidVisitID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceView); err != nil {
		return nil, err
	}

	row, err := s.repo.FindRow(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	detail := &domain.VisitDetail{VisitResponse: toResponse(row)}
	if detail.WaterTests, err = s.repo.ListWaterTests(ctx, id); err != nil {
		return nil, err
	}
	if detail.Chemicals, err = s.repo.ListChemicals(ctx, id); err != nil {
		return nil, err
	}
	if detail.MaintenanceTasks, err = s.repo.ListMaintenanceTasks(ctx, id); err != nil {
		return nil, err
	}
	if detail.WaterTests == nil {
		detail.WaterTests = []domain.WaterTest{}
	}
	if detail.Chemicals == nil {
		detail.Chemicals = []domain.ChemicalAddition{}
	}
	if detail.MaintenanceTasks == nil {
		detail.MaintenanceTasks = []domain.MaintenanceTask{}
	}
	return detail, nil
}

func (s *Service) Create(ctx context.Context, actor teamdomain.Membership, req domain.CreateRequest) (*domain.VisitResponse, error) {
	propertyID, err := propertyservice.ParseID(req.PropertyID)
	if err != nil {
		return nil, err
	}
	unitID, err := optionalID(req.UnitID, domain.ErrInvalidUnitID)
	if err != nil {
		return nil, err
	}
	technicianID, err := optionalID(req.TechnicianID, domain.ErrInvalidTechnicianID)
	if err != nil {
		return nil, err
	}
	serviceDate, err := parseDate(req.ServiceDate)
	if err != nil {
		return nil, err
	}
	status := domain.StatusScheduled
	if strings.TrimSpace(req.Status) != "" {
		if status, err = domain.ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}
	notes, err := validNotes(req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceManage); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	visit := domain.Visit{
		ID:           s.genID.Generate(),
		CompanyID:    actor.CompanyID,
		PropertyID:   propertyID,
		UnitID:       unitID,
		TechnicianID: technicianID,
		ServiceDate:  serviceDate,
		Status:       status,
		Notes:        notes,
		CreatedBy:    &actor.UserID,
		UpdatedBy:    &actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var row *domain.VisitRow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkAssignment(ctx, tx, actor.CompanyID, &visit); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &visit); err != nil {
			return err
		}
		var err error
		if row, err = repo.FindRow(ctx, actor.CompanyID, visit.ID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionVisitCreated,
			TargetType: "service_visit",
			TargetID:   visit.ID.String(),
			EntityName: row.PropertyName,
			Metadata: map[string]any{
				"service_date": visit.ServiceDate.Format(dateLayout),
				"status":       string(visit.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFieldRecord(ctx, "visit")
	s.log.Info("service visit created",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("visit_id", visit.ID.String()),
	)
	resp := toResponse(row)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, actor teamdomain.Membership, rawID string, req domain.UpdateRequest) (*domain.VisitResponse, error) {
	id, err := parseID(rawID, domain.ErrInvalidVisitID)
	if err != nil {
		return nil, err
	}
	unitID, err := optionalID(req.UnitID, domain.ErrInvalidUnitID)
	if err != nil {
		return nil, err
	}
	technicianID, err := optionalID(req.TechnicianID, domain.ErrInvalidTechnicianID)
	if err != nil {
		return nil, err
	}
	var serviceDate time.Time
	if req.ServiceDate != nil {
		if serviceDate, err = parseDate(*req.ServiceDate); err != nil {
			return nil, err
		}
	}
	var status domain.Status
	if req.Status != nil {
		if status, err = domain.ParseStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	notes, err := validNotes(req.Notes)
	if err != nil {
		return nil, err
	}
	// Reassigning or rescheduling is a dispatcher decision.
	reassigns := req.UnitID != nil || req.TechnicianID != nil || req.ServiceDate != nil

	visit, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if reassigns {
		err = s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceManage)
	} else {
		err = s.authorizeRecord(ctx, actor, visit)
	}
	if err != nil {
		return nil, err
	}

	var row *domain.VisitRow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}

		next := *current
		if req.UnitID != nil {
			next.UnitID = unitID
		}
		if req.TechnicianID != nil {
			next.TechnicianID = technicianID
		}
		if req.ServiceDate != nil {
			next.ServiceDate = serviceDate
		}
		if req.Status != nil {
			next.Status = status
		}
		if req.Notes != nil {
			next.Notes = notes
		}
		if reassigns {
			if err := s.checkAssignment(ctx, tx, actor.CompanyID, &next); err != nil {
				return err
			}
		}
		next.UpdatedBy = &actor.UserID
		next.UpdatedAt = s.clock.Now()

		if err := repo.Update(ctx, &next); err != nil {
			return err
		}
		if row, err = repo.FindRow(ctx, actor.CompanyID, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionVisitUpdated,
			TargetType: "service_visit",
			TargetID:   id.String(),
			EntityName: row.PropertyName,
			Metadata:   map[string]any{"changed": changedFields(current, &next)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("service visit updated",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("visit_id", id.String()),
	)
	resp := toResponse(row)
	return &resp, nil
}

func (s *Service) AddWaterTest(ctx context.Context, actor teamdomain.Membership, rawVisitID string, req domain.WaterTestRequest) (*domain.WaterTest, error) {
	visitID, err := parseID(rawVisitID, domain.ErrInvalidVisitID)
	if err != nil {
		return nil, err
	}
	if err := validReadings(req); err != nil {
		return nil, err
	}
	notes, err := validNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	test := domain.WaterTest{
		ID:          s.genID.Generate(),
		VisitID:     visitID,
		CompanyID:   actor.CompanyID,
		PH:          req.PH,
		Chlorine:    req.Chlorine,
		Bromine:     req.Bromine,
		Alkalinity:  req.Alkalinity,
		Calcium:     req.Calcium,
		Cyanuric:    req.Cyanuric,
		Salt:        req.Salt,
		Turbidity:   req.Turbidity,
		Temperature: req.Temperature,
		Notes:       notes,
		RecordedBy:  &actor.UserID,
		CreatedAt:   s.clock.Now(),
	}
	err = s.addRecord(ctx, actor, visitID, auditdomain.ActionWaterTestRecorded, "water_test", test.ID, nil,
		func(repo domain.Repository) error { return repo.CreateWaterTest(ctx, &test) })
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (s *Service) AddChemical(ctx context.Context, actor teamdomain.Membership, rawVisitID string, req domain.ChemicalRequest) (*domain.ChemicalAddition, error) {
	visitID, err := parseID(rawVisitID, domain.ErrInvalidVisitID)
	if err != nil {
		return nil, err
	}
	chemicalType, err := validLabel(req.ChemicalType, domain.ErrInvalidChemicalType)
	if err != nil {
		return nil, err
	}
	if !finite(req.Quantity) || req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	measure, err := validLabel(req.UnitOfMeasure, domain.ErrInvalidMeasure)
	if err != nil {
		return nil, err
	}
	if req.Cost != nil && (!finite(*req.Cost) || *req.Cost < 0) {
		return nil, domain.ErrInvalidCost
	}

	chemical := domain.ChemicalAddition{
		ID:            s.genID.Generate(),
		VisitID:       visitID,
		CompanyID:     actor.CompanyID,
		ChemicalType:  chemicalType,
		Quantity:      req.Quantity,
		UnitOfMeasure: measure,
		Cost:          req.Cost,
		RecordedBy:    &actor.UserID,
		CreatedAt:     s.clock.Now(),
	}
	metadata := map[string]any{"chemical_type": chemicalType, "quantity": req.Quantity, "unit_of_measure": measure}
	err = s.addRecord(ctx, actor, visitID, auditdomain.ActionChemicalAdded, "chemical", chemical.ID, metadata,
		func(repo domain.Repository) error { return repo.CreateChemical(ctx, &chemical) })
	if err != nil {
		return nil, err
	}
	return &chemical, nil
}

func (s *Service) AddMaintenanceTask(ctx context.Context, actor teamdomain.Membership, rawVisitID string, req domain.MaintenanceRequest) (*domain.MaintenanceTask, error) {
	visitID, err := parseID(rawVisitID, domain.ErrInvalidVisitID)
	if err != nil {
		return nil, err
	}
	taskType, err := validLabel(req.TaskType, domain.ErrInvalidTaskType)
	if err != nil {
		return nil, err
	}
	notes, err := validNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	task := domain.MaintenanceTask{
		ID:         s.genID.Generate(),
		VisitID:    visitID,
		CompanyID:  actor.CompanyID,
		TaskType:   taskType,
		Completed:  req.Completed,
		Notes:      notes,
		RecordedBy: &actor.UserID,
		CreatedAt:  s.clock.Now(),
	}
	metadata := map[string]any{"task_type": taskType, "completed": req.Completed}
	err = s.addRecord(ctx, actor, visitID, auditdomain.ActionMaintenanceAdded, "maintenance", task.ID, metadata,
		func(repo domain.Repository) error { return repo.CreateMaintenanceTask(ctx, &task) })
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// addRecord stores one on-site record against a visit that is not cancelled.
func (s *Service) addRecord(
	ctx context.Context,
	actor teamdomain.Membership,
	visitID snowflake.ID,
	action string,
	kind string,
	recordID snowflake.ID,
	metadata map[string]any,
	insert func(repo domain.Repository) error,
) error {
	visit, err := s.repo.FindByID(ctx, actor.CompanyID, visitID)
	if err != nil {
		return err
	}
	if err := s.authorizeRecord(ctx, actor, visit); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		visit, err := repo.FindByID(ctx, actor.CompanyID, visitID)
		if err != nil {
			return err
		}
		if visit.Status == domain.StatusCancelled {
			return domain.ErrVisitCancelled
		}
		if err := insert(repo); err != nil {
			return err
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["visit_id"] = visitID.String()
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     action,
			TargetType: kind,
			TargetID:   recordID.String(),
			EntityName: visit.ServiceDate.Format(dateLayout),
			Metadata:   metadata,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordFieldRecord(ctx, kind)
	s.log.Info("service record added",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("visit_id", visitID.String()),
		zap.String("kind", kind),
	)
	return nil
}

// authorizeRecord lets the assigned technician record against their own
// visit; everyone else needs service.manage.
func (s *Service) authorizeRecord(ctx context.Context, actor teamdomain.Membership, visit *domain.Visit) error {
	if visit.TechnicianID != nil && *visit.TechnicianID == actor.UserID {
		err := s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceRecord)
		if err == nil || !errors.Is(err, authorization.ErrForbidden) {
			return err
		}
	}
	return s.authz.Authorize(ctx, actor, authorization.ObjectService, authorization.ActionServiceManage)
}

// checkAssignment confirms the property, unit and technician all belong to
// the company and to each other.
func (s *Service) checkAssignment(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, visit *domain.Visit) error {
	properties := s.propertyRepo.WithTx(tx)
	if _, err := properties.FindByID(ctx, companyID, visit.PropertyID); err != nil {
		if errors.Is(err, propertydomain.ErrPropertyNotFound) {
			return propertydomain.ErrInvalidPropertyID
		}
		return err
	}
	if visit.UnitID != nil {
		unit, err := properties.FindUnit(ctx, companyID, *visit.UnitID)
		if errors.Is(err, propertydomain.ErrUnitNotFound) {
			return domain.ErrInvalidUnitID
		}
		if err != nil {
			return err
		}
		if unit.PropertyID != visit.PropertyID {
			return domain.ErrInvalidUnitID
		}
	}
	if visit.TechnicianID != nil {
		profile, err := s.teamRepo.WithTx(tx).FindProfile(ctx, *visit.TechnicianID)
		if errors.Is(err, teamdomain.ErrProfileNotFound) {
			return domain.ErrInvalidTechnicianID
		}
		if err != nil {
			return err
		}
		if profile.CompanyID == nil || *profile.CompanyID != companyID || profile.Role == nil || *profile.Role == teamdomain.RolePortal {
			return domain.ErrInvalidTechnicianID
		}
	}
	return nil
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

// optionalID treats a blank value as "no assignment".
func optionalID(raw *string, invalid error) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(*raw, invalid)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(raw string) (time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, domain.ErrInvalidServiceDate
	}
	return day.UTC(), nil
}

func validNotes(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	notes := strings.TrimSpace(*raw)
	if notes == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, domain.ErrInvalidNotes
	}
	return &notes, nil
}

func validLabel(raw string, invalid error) (string, error) {
	label := strings.TrimSpace(raw)
	if label == "" || utf8.RuneCountInString(label) > maxLabelLength {
		return "", invalid
	}
	return label, nil
}

func validReadings(req domain.WaterTestRequest) error {
	readings := []*float64{
		req.PH, req.Chlorine, req.Bromine, req.Alkalinity, req.Calcium,
		req.Cyanuric, req.Salt, req.Turbidity, req.Temperature,
	}
	present := false
	for _, r := range readings {
		if r == nil {
			continue
		}
		present = true
		if !finite(*r) {
			return domain.ErrInvalidReading
		}
	}
	if !present {
		return domain.ErrEmptyWaterTest
	}
	if req.PH != nil && (*req.PH < 0 || *req.PH > 14) {
		return domain.ErrInvalidReading
	}
	if req.Temperature != nil && (*req.Temperature < minTemperatureC || *req.Temperature > maxTemperatureC) {
		return domain.ErrInvalidReading
	}
	for _, r := range []*float64{req.Chlorine, req.Bromine, req.Alkalinity, req.Calcium, req.Cyanuric, req.Salt, req.Turbidity} {
		if r != nil && *r < 0 {
			return domain.ErrInvalidReading
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func changedFields(before, after *domain.Visit) []string {
	changed := []string{}
	if !sameID(before.UnitID, after.UnitID) {
		changed = append(changed, "unit_id")
	}
	if !sameID(before.TechnicianID, after.TechnicianID) {
		changed = append(changed, "technician_id")
	}
	if !before.ServiceDate.Equal(after.ServiceDate) {
		changed = append(changed, "service_date")
	}
	if before.Status != after.Status {
		changed = append(changed, "status")
	}
	if deref(before.Notes) != deref(after.Notes) {
		changed = append(changed, "notes")
	}
	return changed
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func idString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toResponse(row *domain.VisitRow) domain.VisitResponse {
	resp := domain.VisitResponse{
		ID:           row.ID.String(),
		PropertyID:   row.PropertyID.String(),
		UnitID:       idString(row.UnitID),
		TechnicianID: idString(row.TechnicianID),
		ServiceDate:  row.ServiceDate.UTC().Format(dateLayout),
		Status:       row.Status,
		Notes:        row.Notes,
		Property:     domain.PropertySummary{Name: row.PropertyName, Address: row.PropertyAddress},
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.UnitName != nil {
		resp.Unit = &domain.UnitSummary{Name: *row.UnitName}
	}
	if row.TechnicianID != nil && row.TechnicianEmail != nil {
		resp.Technician = &domain.Technician{
			FirstName: deref(row.TechnicianFirstName),
			LastName:  deref(row.TechnicianLastName),
			Email:     *row.TechnicianEmail,
		}
	}
	return resp
}
