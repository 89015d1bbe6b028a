package service

import (
	"context"
	"strings"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/clock"
	obscontext "github.com/aquivis/aquivis/internal/observability/context"
	"github.com/aquivis/aquivis/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const unknownActor = "Unknown"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	if entry.CompanyID == 0 {
		return auditdomain.ErrInvalidCompany
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if name := strings.TrimSpace(entry.EntityName); name != "" {
		payload["entity_name"] = name
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	actorType := string(auditdomain.ActorTypeSystem)
	if entry.ActorID != nil && *entry.ActorID != 0 {
		actorType = string(auditdomain.ActorTypeUser)
	}

	companyID := entry.CompanyID
	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		CompanyID:  &companyID,
		ActorType:  actorType,
		ActorID:    entry.ActorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   normalizeString(entry.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}

	db := tx
	if db == nil {
		db = s.db
	}
	if err := s.repo.Insert(ctx, db, &row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	if req.CompanyID == 0 {
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidCompany
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	switch category {
	case "", auditdomain.CategoryTeam, auditdomain.CategoryCompany,
		auditdomain.CategoryProperty, auditdomain.CategoryService:
	default:
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidCategory
	}

	limit := req.Limit
	if limit < 0 {
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidLimit
	}
	if limit == 0 {
		limit = auditdomain.DefaultLimit
	}
	if limit > auditdomain.MaxLimit {
		limit = auditdomain.MaxLimit
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: decoded.CreatedAt}
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		CompanyID: req.CompanyID,
		Category:  category,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return auditdomain.ListActivityResponse{}, err
	}

	items, pageInfo, err := pagination.Page(items, limit, func(item *auditdomain.ActivityRow) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String(), CreatedAt: item.CreatedAt}
	})
	if err != nil {
		return auditdomain.ListActivityResponse{}, err
	}

	activities := make([]auditdomain.Activity, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		activities = append(activities, toActivity(item))
	}

	return auditdomain.ListActivityResponse{PageInfo: pageInfo, Activities: activities}, nil
}

func toActivity(row *auditdomain.ActivityRow) auditdomain.Activity {
	category, verb := splitAction(row.Action)

	details := map[string]any{}
	var entityName string
	for key, value := range row.Metadata {
		switch key {
		case "entity_name":
			entityName, _ = value.(string)
		case "request_id":
		default:
			details[key] = value
		}
	}

	return auditdomain.Activity{
		ID:         row.ID.String(),
		EntityType: row.TargetType,
		EntityName: entityName,
		User:       actorOf(row),
		Timestamp:  row.CreatedAt.UTC(),
		Action:     verb,
		Category:   category,
		Details:    details,
	}
}

// splitAction turns "team.member.removed" into ("team", "removed").
func splitAction(action string) (string, string) {
	parts := strings.Split(action, ".")
	if len(parts) < 2 {
		return action, action
	}
	return parts[0], parts[len(parts)-1]
}

func actorOf(row *auditdomain.ActivityRow) auditdomain.ActivityUser {
	if row.ActorEmail == nil {
		return auditdomain.ActivityUser{Email: unknownActor, Name: unknownActor}
	}
	name := strings.TrimSpace(deref(row.ActorFirstName) + " " + deref(row.ActorLastName))
	if name == "" {
		name = *row.ActorEmail
	}
	return auditdomain.ActivityUser{Email: *row.ActorEmail, Name: name}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func normalizeString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
