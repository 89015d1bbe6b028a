package service

import (
	"context"
	"math"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/property/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNameLength    = 100
	maxAddressLength = 255
	maxVolumeLitres  = 10_000_000
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Authz   authorization.Service
	Audit   auditdomain.Service
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	authz   authorization.Service
	audit   auditdomain.Service
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("property.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		authz:   p.Authz,
		audit:   p.Audit,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, actor teamdomain.Membership) ([]domain.PropertyResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectProperty, authorization.ActionPropertyView); err != nil {
		return nil, err
	}
	properties, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}
	units, err := s.repo.ListUnits(ctx, actor.CompanyID, ids)
	if err != nil {
		return nil, err
	}
	byProperty := make(map[snowflake.ID][]domain.Unit, len(properties))
	for _, u := range units {
		byProperty[u.PropertyID] = append(byProperty[u.PropertyID], u)
	}

	out := make([]domain.PropertyResponse, 0, len(properties))
	for i := range properties {
		out = append(out, *toResponse(&properties[i], byProperty[properties[i].ID]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor teamdomain.Membership, rawID string) (*domain.PropertyResponse, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectProperty, authorization.ActionPropertyView); err != nil {
		return nil, err
	}
	property, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnits(ctx, actor.CompanyID, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	return toResponse(property, units), nil
}

func (s *Service) Create(ctx context.Context, actor teamdomain.Membership, req domain.CreateRequest) (*domain.PropertyResponse, error) {
	name, err := validName(req.Name)
	if err != nil {
		return nil, err
	}
	address, err := validAddress(req.Address)
	if err != nil {
		return nil, err
	}
	timezone, err := validTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectProperty, authorization.ActionPropertyManage); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	property := domain.Property{
		ID:                 s.genID.Generate(),
		CompanyID:          actor.CompanyID,
		Name:               name,
		Address:            address,
		HasIndividualUnits: req.HasIndividualUnits,
		Timezone:           timezone,
		CreatedBy:          &actor.UserID,
		UpdatedBy:          &actor.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if property.Timezone == "" {
			if property.Timezone, err = repo.CompanyTimezone(ctx, actor.CompanyID); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, &property); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionPropertyCreated,
			TargetType: "property",
			TargetID:   property.ID.String(),
			EntityName: property.Name,
			Metadata:   map[string]any{"has_individual_units": property.HasIndividualUnits},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFieldRecord(ctx, "property")
	s.log.Info("property created",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("property_id", property.ID.String()),
	)
	return toResponse(&property, nil), nil
}

func (s *Service) Update(ctx context.Context, actor teamdomain.Membership, rawID string, req domain.UpdateRequest) (*domain.PropertyResponse, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	var name string
	if req.Name != nil {
		if name, err = validName(*req.Name); err != nil {
			return nil, err
		}
	}
	address, err := validAddress(req.Address)
	if err != nil {
		return nil, err
	}
	var timezone string
	if req.Timezone != nil {
		if timezone, err = validTimezone(*req.Timezone); err != nil {
			return nil, err
		}
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectProperty, authorization.ActionPropertyManage); err != nil {
		return nil, err
	}

	var (
		updated *domain.Property
		units   []domain.Unit
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}

		next := *current
		if req.Name != nil {
			next.Name = name
		}
		if req.Address != nil {
			next.Address = address
		}
		if req.HasIndividualUnits != nil {
			next.HasIndividualUnits = *req.HasIndividualUnits
		}
		if req.Timezone != nil {
			if timezone == "" {
				if timezone, err = repo.CompanyTimezone(ctx, actor.CompanyID); err != nil {
					return err
				}
			}
			next.Timezone = timezone
		}
		next.UpdatedBy = &actor.UserID
		next.UpdatedAt = s.clock.Now()

		if err := repo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		if units, err = repo.ListUnits(ctx, actor.CompanyID, []snowflake.ID{id}); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionPropertyUpdated,
			TargetType: "property",
			TargetID:   id.String(),
			EntityName: next.Name,
			Metadata:   map[string]any{"changed": changedFields(current, &next)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("property updated",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("property_id", id.String()),
	)
	return toResponse(updated, units), nil
}

func (s *Service) AddUnit(ctx context.Context, actor teamdomain.Membership, rawPropertyID string, req domain.UnitRequest) (*domain.UnitResponse, error) {
	propertyID, err := ParseID(rawPropertyID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, domain.ErrInvalidUnitName
	}
	unitType, err := domain.ParseUnitType(req.UnitType)
	if err != nil {
		return nil, err
	}
	waterType, err := domain.ParseWaterType(req.WaterType)
	if err != nil {
		return nil, err
	}
	if v := req.VolumeLitres; v != nil && (math.IsNaN(*v) || *v <= 0 || *v > maxVolumeLitres) {
		return nil, domain.ErrInvalidVolume
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectProperty, authorization.ActionPropertyManage); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	unit := domain.Unit{
		ID:           s.genID.Generate(),
		PropertyID:   propertyID,
		CompanyID:    actor.CompanyID,
		Name:         name,
		UnitType:     unitType,
		WaterType:    waterType,
		VolumeLitres: req.VolumeLitres,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		property, err := repo.FindByID(ctx, actor.CompanyID, propertyID)
		if err != nil {
			return err
		}
		if err := repo.CreateUnit(ctx, &unit); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionUnitCreated,
			TargetType: "unit",
			TargetID:   unit.ID.String(),
			EntityName: property.Name + " / " + unit.Name,
			Metadata: map[string]any{
				"property_id": propertyID.String(),
				"unit_type":   string(unit.UnitType),
				"water_type":  string(unit.WaterType),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFieldRecord(ctx, "unit")
	s.log.Info("unit created",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("property_id", propertyID.String()),
		zap.String("unit_id", unit.ID.String()),
	)
	resp := toUnitResponse(&unit)
	return &resp, nil
}

// ParseID reads a property id from a path segment.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidPropertyID
	}
	return id, nil
}

func validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

// validAddress returns nil for a missing or blank address.
func validAddress(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	address := strings.TrimSpace(*raw)
	if address == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(address) > maxAddressLength {
		return nil, domain.ErrInvalidAddress
	}
	return &address, nil
}

// validTimezone returns "" for a blank zone so the caller falls back to the
// company's timezone.
func validTimezone(raw string) (string, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return "", nil
	}
	if _, err := time.LoadLocation(tz); err != nil || strings.EqualFold(tz, "local") {
		return "", domain.ErrInvalidTimezone
	}
	return tz, nil
}

func changedFields(before, after *domain.Property) []string {
	changed := []string{}
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if deref(before.Address) != deref(after.Address) {
		changed = append(changed, "address")
	}
	if before.HasIndividualUnits != after.HasIndividualUnits {
		changed = append(changed, "has_individual_units")
	}
	if before.Timezone != after.Timezone {
		changed = append(changed, "timezone")
	}
	return changed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func toResponse(p *domain.Property, units []domain.Unit) *domain.PropertyResponse {
	resp := &domain.PropertyResponse{
		ID:                 p.ID.String(),
		Name:               p.Name,
		Address:            p.Address,
		HasIndividualUnits: p.HasIndividualUnits,
		Timezone:           p.Timezone,
		Units:              make([]domain.UnitResponse, 0, len(units)),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	for i := range units {
		resp.Units = append(resp.Units, toUnitResponse(&units[i]))
	}
	return resp
}

func toUnitResponse(u *domain.Unit) domain.UnitResponse {
	return domain.UnitResponse{
		ID:           u.ID.String(),
		PropertyID:   u.PropertyID.String(),
		Name:         u.Name,
		UnitType:     u.UnitType,
		WaterType:    u.WaterType,
		VolumeLitres: u.VolumeLitres,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}
