package property

import (
	"github.com/aquivis/aquivis/internal/property/repository"
	"github.com/aquivis/aquivis/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
