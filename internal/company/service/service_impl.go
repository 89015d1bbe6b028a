package service

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/company/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNameLength    = 100
	maxTaxIDLength   = 50
	maxAddressLength = 255
	defaultTimezone  = "UTC"
	fallbackSlug     = "company"
)

var phonePattern = regexp.MustCompile(`^[\d\s()+-]+$`)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	TeamRepo teamdomain.Repository
	Authz    authorization.Service
	Audit    auditdomain.Service
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	teamRepo teamdomain.Repository
	authz    authorization.Service
	audit    auditdomain.Service
	clock    clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("company.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		teamRepo: p.TeamRepo,
		authz:    p.Authz,
		audit:    p.Audit,
		clock:    p.Clock,
	}
}

func (s *Service) Onboard(ctx context.Context, userID snowflake.ID, req domain.OnboardRequest) (*domain.CompanyResponse, error) {
	if userID <= 0 {
		return nil, teamdomain.ErrProfileNotFound
	}
	name, err := validName(req.CompanyName)
	if err != nil {
		return nil, err
	}
	timezone, err := validTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:        s.genID.Generate(),
		Name:      name,
		Timezone:  timezone,
		CreatedBy: &userID,
		UpdatedBy: &userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		profile, err := s.teamRepo.WithTx(tx).FindProfile(ctx, userID)
		if err != nil {
			return err
		}
		if profile.CompanyID != nil {
			return domain.ErrAlreadyOnboarded
		}

		if company.Slug, err = s.uniqueSlug(ctx, repo, company); err != nil {
			return err
		}
		if err := repo.Create(ctx, &company); err != nil {
			return err
		}

		claimed, err := repo.ClaimOwnership(ctx, userID, company.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrAlreadyOnboarded
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  company.ID,
			ActorID:    &userID,
			Action:     auditdomain.ActionCompanyCreated,
			TargetType: "company",
			TargetID:   company.ID.String(),
			EntityName: company.Name,
			Metadata: map[string]any{
				"slug":     company.Slug,
				"timezone": company.Timezone,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("company onboarded",
		zap.String("company_id", company.ID.String()),
		zap.String("owner_id", userID.String()),
	)
	return toResponse(&company), nil
}

func (s *Service) Get(ctx context.Context, actor teamdomain.Membership) (*domain.CompanyResponse, error) {
	if actor.CompanyID <= 0 {
		return nil, teamdomain.ErrNoCompany
	}
	company, err := s.repo.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return toResponse(company), nil
}

func (s *Service) Update(ctx context.Context, actor teamdomain.Membership, req domain.UpdateRequest) (*domain.CompanyResponse, error) {
	name, err := validName(req.Name)
	if err != nil {
		return nil, err
	}
	timezone, err := validTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}
	phone, err := validPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	website, err := normalizeWebsite(req.Website)
	if err != nil {
		return nil, err
	}
	taxID := optional(req.TaxID)
	if taxID != nil && utf8.RuneCountInString(*taxID) > maxTaxIDLength {
		return nil, domain.ErrInvalidTaxID
	}
	address := []*string{
		optional(req.BusinessAddress),
		optional(req.BusinessAddressStreet),
		optional(req.BusinessAddressCity),
		optional(req.BusinessAddressState),
		optional(req.BusinessAddressPostalCode),
		optional(req.BusinessAddressCountry),
	}
	for _, line := range address {
		if line != nil && utf8.RuneCountInString(*line) > maxAddressLength {
			return nil, domain.ErrInvalidAddress
		}
	}

	if err := s.authz.Authorize(ctx, actor, authorization.ObjectCompany, authorization.ActionCompanyManage); err != nil {
		return nil, err
	}

	var updated *domain.Company
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, actor.CompanyID)
		if err != nil {
			return err
		}

		next := *current
		next.Name = name
		next.Timezone = timezone
		next.BusinessAddress = address[0]
		next.BusinessAddressStreet = address[1]
		next.BusinessAddressCity = address[2]
		next.BusinessAddressState = address[3]
		next.BusinessAddressPostalCode = address[4]
		next.BusinessAddressCountry = address[5]
		next.Phone = phone
		next.Website = website
		next.TaxID = taxID
		next.UpdatedBy = &actor.UserID
		next.UpdatedAt = s.clock.Now()

		if err := repo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionCompanyUpdated,
			TargetType: "company",
			TargetID:   actor.CompanyID.String(),
			EntityName: next.Name,
			Metadata:   map[string]any{"changed": changedFields(current, &next)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("company updated",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("actor_id", actor.UserID.String()),
	)
	return toResponse(updated), nil
}

// uniqueSlug derives the slug from the name and appends the company id when
// another company already holds it.
func (s *Service) uniqueSlug(ctx context.Context, repo domain.Repository, company domain.Company) (string, error) {
	base := slug.Make(company.Name)
	if base == "" {
		base = fallbackSlug
	}
	taken, err := repo.SlugTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return base + "-" + strings.ToLower(company.ID.Base36()), nil
}

func validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func validTimezone(raw string) (string, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return defaultTimezone, nil
	}
	if _, err := time.LoadLocation(tz); err != nil || strings.EqualFold(tz, "local") {
		return "", domain.ErrInvalidTimezone
	}
	return tz, nil
}

func validPhone(raw *string) (*string, error) {
	phone := optional(raw)
	if phone != nil && !phonePattern.MatchString(*phone) {
		return nil, domain.ErrInvalidPhone
	}
	return phone, nil
}

// normalizeWebsite prefixes http:// when no scheme is given.
func normalizeWebsite(raw *string) (*string, error) {
	website := optional(raw)
	if website == nil {
		return nil, nil
	}
	value := *website
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		value = "http://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return nil, domain.ErrInvalidWebsite
	}
	return &value, nil
}

func optional(raw *string) *string {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil
	}
	return &value
}

func changedFields(before, after *domain.Company) []string {
	fields := []struct {
		name string
		a, b *string
	}{
		{"business_address", before.BusinessAddress, after.BusinessAddress},
		{"business_address_street", before.BusinessAddressStreet, after.BusinessAddressStreet},
		{"business_address_city", before.BusinessAddressCity, after.BusinessAddressCity},
		{"business_address_state", before.BusinessAddressState, after.BusinessAddressState},
		{"business_address_postal_code", before.BusinessAddressPostalCode, after.BusinessAddressPostalCode},
		{"business_address_country", before.BusinessAddressCountry, after.BusinessAddressCountry},
		{"phone", before.Phone, after.Phone},
		{"website", before.Website, after.Website},
		{"tax_id", before.TaxID, after.TaxID},
	}

	changed := []string{}
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.Timezone != after.Timezone {
		changed = append(changed, "timezone")
	}
	for _, f := range fields {
		if deref(f.a) != deref(f.b) {
			changed = append(changed, f.name)
		}
	}
	return changed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func toResponse(c *domain.Company) *domain.CompanyResponse {
	return &domain.CompanyResponse{
		ID:                        c.ID.String(),
		Name:                      c.Name,
		Slug:                      c.Slug,
		Timezone:                  c.Timezone,
		BusinessAddress:           c.BusinessAddress,
		BusinessAddressStreet:     c.BusinessAddressStreet,
		BusinessAddressCity:       c.BusinessAddressCity,
		BusinessAddressState:      c.BusinessAddressState,
		BusinessAddressPostalCode: c.BusinessAddressPostalCode,
		BusinessAddressCountry:    c.BusinessAddressCountry,
		Phone:                     c.Phone,
		Website:                   c.Website,
		TaxID:                     c.TaxID,
		CreatedAt:                 c.CreatedAt,
		UpdatedAt:                 c.UpdatedAt,
	}
}

