package signup

import (
	"context"

	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	"github.com/aquivis/aquivis/internal/signup/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Auth authdomain.Service
	Team teamdomain.Service
}

type service struct {
	db   *gorm.DB
	log  *zap.Logger
	auth authdomain.Service
	team teamdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:   p.DB,
		log:  p.Log.Named("signup.service"),
		auth: p.Auth,
		team: p.Team,
	}
}

func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	var profile *teamdomain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.auth.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return err
		}
		profile, err = s.team.EnsureProfile(ctx, tx, user.ID, user.Email)
		return err
	})
	if err != nil {
		return nil, err
	}

	session, err := s.auth.Login(ctx, authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", profile.ID.String()))
	return &domain.Result{
		RawToken:  session.RawToken,
		ExpiresAt: session.ExpiresAt,
		Profile:   profile,
	}, nil
}
