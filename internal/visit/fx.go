package visit

import (
	"github.com/aquivis/aquivis/internal/visit/repository"
	"github.com/aquivis/aquivis/internal/visit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("visit.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
