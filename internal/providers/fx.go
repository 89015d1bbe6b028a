package providers

import (
	"github.com/aquivis/aquivis/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
