package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 50

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Audit   auditdomain.Service
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	audit   auditdomain.Service
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("team.service"),
		repo:    p.Repo,
		audit:   p.Audit,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, userID snowflake.ID) (*domain.Membership, error) {
	if userID == 0 {
		return nil, domain.ErrNoCompany
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrNoCompany
		}
		return nil, err
	}
	if profile.CompanyID == nil || *profile.CompanyID == 0 {
		return nil, domain.ErrNoCompany
	}

	var role domain.Role
	if profile.Role != nil {
		role = *profile.Role
	}
	return &domain.Membership{
		UserID:    profile.ID,
		Email:     profile.Email,
		CompanyID: *profile.CompanyID,
		Role:      role,
	}, nil
}

func (s *Service) EnsureProfile(ctx context.Context, tx *gorm.DB, userID snowflake.ID, email string) (*domain.Profile, error) {
	repo := s.repo.WithTx(tx)
	if profile, err := repo.FindProfile(ctx, userID); err == nil {
		return profile, nil
	} else if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	profile := &domain.Profile{
		ID:        userID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) GetProfile(ctx context.Context, userID snowflake.ID) (*domain.Profile, error) {
	return s.repo.FindProfile(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID snowflake.ID, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	firstName, lastName := profile.FirstName, profile.LastName
	if req.FirstName != nil {
		if firstName, err = validName(*req.FirstName); err != nil {
			return nil, err
		}
	}
	if req.LastName != nil {
		if lastName, err = validName(*req.LastName); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateName(ctx, userID, firstName, lastName, now); err != nil {
		return nil, err
	}

	profile.FirstName = firstName
	profile.LastName = lastName
	profile.UpdatedBy = &userID
	profile.UpdatedAt = now
	return profile, nil
}

func (s *Service) ListMembers(ctx context.Context, actor domain.Membership) ([]domain.MemberResponse, error) {
	members, err := s.repo.ListMembers(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(members))
	for _, m := range members {
		p := domain.Profile{Email: m.Email, FirstName: m.FirstName, LastName: m.LastName}
		resp = append(resp, domain.MemberResponse{
			ID:        m.ID.String(),
			Email:     m.Email,
			Name:      p.DisplayName(),
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) UpdateRole(ctx context.Context, actor domain.Membership, memberID string, rawRole string) error {
	role, err := domain.ParseAssignableRole(rawRole)
	if err != nil {
		return err
	}
	target, err := parseMemberID(memberID)
	if err != nil {
		return err
	}
	if !actor.CanManageTeam() {
		return domain.ErrForbidden
	}

	var (
		previous  domain.Role
		unchanged bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		member, err := s.loadTarget(ctx, repo, actor, target)
		if err != nil {
			return err
		}
		if member.Role != nil {
			previous = *member.Role
		}
		if previous == role {
			unchanged = true
			return nil
		}

		if err := repo.LockCompany(ctx, actor.CompanyID); err != nil {
			return err
		}
		changed, err := repo.UpdateRoleGuarded(ctx, domain.RoleUpdate{
			MemberID:  target,
			CompanyID: actor.CompanyID,
			Role:      role,
			UpdatedBy: actor.UserID,
			At:        s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if !changed {
			return s.explainUnchanged(ctx, repo, actor, target, "update_role")
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionMemberRoleUpdated,
			TargetType: "profile",
			TargetID:   target.String(),
			EntityName: member.Email,
			Metadata: map[string]any{
				"from_role": string(previous),
				"role":      string(role),
			},
		})
	})
	if err != nil || unchanged {
		return err
	}

	s.metrics.RecordRoleChange(ctx, string(previous), string(role))
	s.log.Info("member role updated",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("member_id", target.String()),
		zap.String("from_role", string(previous)),
		zap.String("role", string(role)),
	)
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, actor domain.Membership, memberID string) error {
	target, err := parseMemberID(memberID)
	if err != nil {
		return err
	}
	if target == actor.UserID {
		return domain.ErrSelfRemoval
	}
	if !actor.CanManageTeam() {
		return domain.ErrForbidden
	}

	var removedRole domain.Role
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		member, err := s.loadTarget(ctx, repo, actor, target)
		if err != nil {
			return err
		}
		if member.Role != nil {
			removedRole = *member.Role
		}

		if err := repo.LockCompany(ctx, actor.CompanyID); err != nil {
			return err
		}
		changed, err := repo.DetachGuarded(ctx, domain.Detach{
			MemberID:  target,
			CompanyID: actor.CompanyID,
			UpdatedBy: actor.UserID,
			At:        s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if !changed {
			return s.explainUnchanged(ctx, repo, actor, target, "remove_member")
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionMemberRemoved,
			TargetType: "profile",
			TargetID:   target.String(),
			EntityName: member.Email,
			Metadata:   map[string]any{"role": string(removedRole)},
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMemberRemoved(ctx, string(removedRole))
	s.log.Info("member removed",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("member_id", target.String()),
	)
	return nil
}

// loadTarget fetches the member and enforces tenant isolation.
func (s *Service) loadTarget(ctx context.Context, repo domain.Repository, actor domain.Membership, target snowflake.ID) (*domain.Profile, error) {
	member, err := repo.FindProfile(ctx, target)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if member.CompanyID == nil || *member.CompanyID != actor.CompanyID {
		return nil, domain.ErrCrossTenant
	}
	return member, nil
}

// explainUnchanged classifies a guarded write that touched no rows. The
// company lock is held, so the re-read sees the state the guard saw.
func (s *Service) explainUnchanged(ctx context.Context, repo domain.Repository, actor domain.Membership, target snowflake.ID, operation string) error {
	member, err := s.loadTarget(ctx, repo, actor, target)
	if err != nil {
		return err
	}
	if member.Role != nil && *member.Role == domain.RoleOwner {
		s.metrics.RecordOwnerGuard(ctx, operation)
		return domain.ErrSoleOwner
	}
	s.log.Warn("guarded write changed no rows",
		zap.String("operation", operation),
		zap.String("member_id", target.String()),
	)
	return domain.ErrMemberNotFound
}

func parseMemberID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidMember
	}
	return id, nil
}

func validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}
