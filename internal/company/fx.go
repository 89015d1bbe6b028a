package company

import (
	"github.com/aquivis/aquivis/internal/company/repository"
	"github.com/aquivis/aquivis/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
