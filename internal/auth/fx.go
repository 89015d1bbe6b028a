package auth

import (
	"github.com/aquivis/aquivis/internal/auth/repository"
	"github.com/aquivis/aquivis/internal/auth/service"
	"github.com/aquivis/aquivis/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
