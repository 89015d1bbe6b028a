package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/audit/masking"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/config"
	"github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/ratelimit"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxEmailLength     = 254
	unknownInviter     = "Unknown"
	defaultCompanyName = "your company"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	TeamRepo teamdomain.Repository
	Audit    auditdomain.Service
	Notifier domain.Notifier
	Clock    clock.Clock
	Policy   *config.TeamPolicyHolder
	Limiter  *ratelimit.InviteLimiter `optional:"true"`
	Metrics  *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	teamRepo teamdomain.Repository
	audit    auditdomain.Service
	notifier domain.Notifier
	clock    clock.Clock
	policy   *config.TeamPolicyHolder
	limiter  *ratelimit.InviteLimiter
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invitation.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		teamRepo: p.TeamRepo,
		audit:    p.Audit,
		notifier: p.Notifier,
		clock:    p.Clock,
		policy:   p.Policy,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, actor teamdomain.Membership, req domain.CreateRequest) (_ *domain.CreateResponse, err error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	role, err := teamdomain.ParseAssignableRole(req.Role)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageTeam() {
		return nil, teamdomain.ErrForbidden
	}

	if err := s.spendBudget(ctx, actor.CompanyID); err != nil {
		return nil, err
	}
	// only sent invitations count against the budget
	defer func() {
		if err != nil {
			s.refundBudget(ctx, actor.CompanyID)
		}
	}()

	release, err := s.limiter.Lock(ctx, actor.CompanyID.String(), email)
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockHeld) {
			return nil, domain.ErrInviteInProgress
		}
		// the insert guard still holds without the lock
		s.log.Warn("invite lock unavailable", zap.Error(err))
		release = func() {}
	}
	defer release()

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv := domain.Invitation{
		ID:        s.genID.Generate(),
		CompanyID: actor.CompanyID,
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: actor.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.policy.Get().InviteTTL()),
	}

	var companyName, inviterName string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockPair(ctx, inv.CompanyID, inv.Email); err != nil {
			return err
		}

		created, err := repo.InsertIfAbsent(ctx, &inv)
		if err != nil {
			return err
		}
		if !created {
			registered, err := repo.EmailRegistered(ctx, email)
			if err != nil {
				return err
			}
			if registered {
				return domain.ErrEmailRegistered
			}
			return domain.ErrAlreadyInvited
		}

		if companyName, err = repo.CompanyName(ctx, inv.CompanyID); err != nil {
			return err
		}
		inviterName = s.inviterName(ctx, s.teamRepo.WithTx(tx), actor)

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  inv.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionInvitationCreated,
			TargetType: "invitation",
			TargetID:   inv.ID.String(),
			EntityName: inv.Email,
			Metadata: map[string]any{
				"role":       string(inv.Role),
				"expires_at": inv.ExpiresAt.Format(time.RFC3339),
				"token_hint": masking.MaskSecret(inv.Token),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvitationCreated(ctx, string(role))
	s.log.Info("invitation created",
		zap.String("company_id", inv.CompanyID.String()),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("role", string(inv.Role)),
	)

	if companyName == "" {
		companyName = defaultCompanyName
	}
	s.notifier.InvitationCreated(ctx, domain.Notice{
		InvitationID: inv.ID,
		Email:        inv.Email,
		Role:         inv.Role,
		Token:        inv.Token,
		CompanyName:  companyName,
		InviterName:  inviterName,
	})

	return &domain.CreateResponse{
		ID:        inv.ID.String(),
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

func (s *Service) ListPending(ctx context.Context, actor teamdomain.Membership) ([]domain.PendingInvitation, error) {
	items, err := s.repo.ListPending(ctx, actor.CompanyID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	seen := map[snowflake.ID]struct{}{}
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.InvitedBy]; ok || item.InvitedBy == 0 {
			continue
		}
		seen[item.InvitedBy] = struct{}{}
		ids = append(ids, item.InvitedBy)
	}
	inviters, err := s.teamRepo.FindProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(inviters))
	for _, p := range inviters {
		names[p.ID] = p.DisplayName()
	}

	resp := make([]domain.PendingInvitation, 0, len(items))
	for _, item := range items {
		pending := domain.PendingInvitation{
			ID:        item.ID.String(),
			Email:     item.Email,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
			ExpiresAt: item.ExpiresAt,
		}
		if item.InvitedBy != 0 {
			name, ok := names[item.InvitedBy]
			if !ok {
				name = unknownInviter
			}
			pending.InvitedBy = &domain.Inviter{ID: item.InvitedBy.String(), Name: name}
		}
		resp = append(resp, pending)
	}
	return resp, nil
}

func (s *Service) Inspect(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := s.findConsumable(ctx, s.repo, token)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}
	return inv, nil
}

func (s *Service) Accept(ctx context.Context, token string, userID snowflake.ID) error {
	err := s.accept(ctx, token, userID)
	if err != nil {
		s.reject(ctx, err)
	}
	return err
}

func (s *Service) accept(ctx context.Context, token string, userID snowflake.ID) error {
	inv, err := s.findConsumable(ctx, s.repo, token)
	if err != nil {
		return err
	}

	profile, err := s.teamRepo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, teamdomain.ErrProfileNotFound) {
			return domain.ErrEmailMismatch
		}
		return err
	}
	if strings.ToLower(strings.TrimSpace(profile.Email)) != inv.Email {
		return domain.ErrEmailMismatch
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stamped, err := repo.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return err
		}
		if !stamped {
			_, err := s.findConsumable(ctx, repo, token)
			if err == nil {
				err = domain.ErrAlreadyAccepted
			}
			return err
		}

		linked, err := repo.LinkProfile(ctx, domain.LinkProfile{
			UserID:    userID,
			CompanyID: inv.CompanyID,
			Role:      inv.Role,
			InvitedBy: inv.InvitedBy,
			At:        now,
		})
		if err != nil {
			return err
		}
		if !linked {
			return domain.ErrAlreadyInCompany
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  inv.CompanyID,
			ActorID:    &userID,
			Action:     auditdomain.ActionInvitationAccept,
			TargetType: "profile",
			TargetID:   userID.String(),
			EntityName: inv.Email,
			Metadata: map[string]any{
				"role":          string(inv.Role),
				"invitation_id": inv.ID.String(),
				"invited_by":    inv.InvitedBy.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordInvitationAccepted(ctx, string(inv.Role))
	s.log.Info("invitation accepted",
		zap.String("company_id", inv.CompanyID.String()),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

func (s *Service) Delete(ctx context.Context, actor teamdomain.Membership, rawID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return domain.ErrInvalidInvitationID
	}
	if !actor.CanManageTeam() {
		return teamdomain.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if inv.CompanyID != actor.CompanyID {
			return teamdomain.ErrForbidden
		}
		if inv.AcceptedAt != nil {
			return domain.ErrAlreadyAccepted
		}

		deleted, err := repo.DeletePending(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if !deleted {
			if _, err := repo.FindByID(ctx, id); err != nil {
				return err
			}
			return domain.ErrAlreadyAccepted
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			CompanyID:  actor.CompanyID,
			ActorID:    &actor.UserID,
			Action:     auditdomain.ActionInvitationDeleted,
			TargetType: "invitation",
			TargetID:   id.String(),
			EntityName: inv.Email,
			Metadata:   map[string]any{"role": string(inv.Role)},
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordInvitationDeleted(ctx)
	s.log.Info("invitation deleted",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("invitation_id", id.String()),
	)
	return nil
}

// findConsumable loads the invitation for token and checks it can still be
// accepted.
func (s *Service) findConsumable(ctx context.Context, repo domain.Repository, token string) (*domain.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidInvitation
	}
	inv, err := repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return nil, domain.ErrInvalidInvitation
		}
		return nil, err
	}

	switch inv.StateAt(s.clock.Now()) {
	case domain.StateAccepted:
		return nil, domain.ErrAlreadyAccepted
	case domain.StateExpired:
		return nil, domain.ErrExpired
	}
	return inv, nil
}

// spendBudget applies the per-company send budget. Limiter outages fail
// open.
func (s *Service) spendBudget(ctx context.Context, companyID snowflake.ID) error {
	res, err := s.limiter.AllowCompany(ctx, companyID.String())
	if err != nil {
		s.log.Warn("invite limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.metrics.RecordRateLimitDenied(ctx, "team.invite", "company_budget")
		return domain.ErrRateLimited
	}
	return nil
}

func (s *Service) refundBudget(ctx context.Context, companyID snowflake.ID) {
	if err := s.limiter.RefundCompany(context.WithoutCancel(ctx), companyID.String()); err != nil {
		s.log.Warn("invite budget refund failed", zap.Error(err))
	}
}

func (s *Service) inviterName(ctx context.Context, repo teamdomain.Repository, actor teamdomain.Membership) string {
	profile, err := repo.FindProfile(ctx, actor.UserID)
	if err != nil {
		if actor.Email != "" {
			return actor.Email
		}
		return unknownInviter
	}
	return profile.DisplayName()
}

func (s *Service) reject(ctx context.Context, err error) {
	reason := "error"
	switch {
	case errors.Is(err, domain.ErrInvalidInvitation):
		reason = "invalid"
	case errors.Is(err, domain.ErrAlreadyAccepted):
		reason = "already_accepted"
	case errors.Is(err, domain.ErrExpired):
		reason = "expired"
	case errors.Is(err, domain.ErrEmailMismatch):
		reason = "email_mismatch"
	case errors.Is(err, domain.ErrAlreadyInCompany):
		reason = "already_in_company"
	}
	s.metrics.RecordInvitationRejected(ctx, reason)
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxEmailLength {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
