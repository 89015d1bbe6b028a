package email

import (
	"context"

	"go.uber.org/zap"
)

type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	p.log.Debug("email dropped", zap.Int("recipients", len(msg.To)), zap.String("subject", msg.Subject))
	return nil
}
