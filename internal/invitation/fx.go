package invitation

import (
	"github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/aquivis/aquivis/internal/invitation/notify"
	"github.com/aquivis/aquivis/internal/invitation/repository"
	"github.com/aquivis/aquivis/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(notify.New),
	fx.Provide(func(n *notify.EmailNotifier) domain.Notifier { return n }),
	fx.Provide(service.NewService),
)
