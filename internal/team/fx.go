package team

import (
	"github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/internal/team/repository"
	"github.com/aquivis/aquivis/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Resolver { return svc }),
)
