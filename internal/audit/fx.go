package audit

import (
	"github.com/aquivis/aquivis/internal/audit/repository"
	"github.com/aquivis/aquivis/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
