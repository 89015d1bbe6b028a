// Package notify delivers invitation emails off the request path.
package notify

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/aquivis/aquivis/internal/config"
	"github.com/aquivis/aquivis/internal/invitation/domain"
	obscontext "github.com/aquivis/aquivis/internal/observability/context"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Log       *zap.Logger
	Provider  email.Provider
	Metrics   *metrics.Metrics `optional:"true"`
}

// EmailNotifier sends each invitation email on its own goroutine. Failures
// are logged and counted, never retried.
type EmailNotifier struct {
	baseURL  string
	log      *zap.Logger
	provider email.Provider
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func New(p Params) *EmailNotifier {
	n := &EmailNotifier{
		baseURL:  p.Config.AppBaseURL,
		log:      p.Log.Named("invitation.notify"),
		provider: p.Provider,
		metrics:  p.Metrics,
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				n.Wait(ctx)
				return nil
			},
		})
	}
	return n
}

// AcceptLink builds {base_url}/invite/accept?token={token}.
func AcceptLink(baseURL, token string) string {
	return baseURL + "/invite/accept?token=" + url.QueryEscape(token)
}

func (n *EmailNotifier) InvitationCreated(ctx context.Context, notice domain.Notice) {
	log := n.log.With(zap.String("invitation_id", notice.InvitationID.String()))

	msg, err := email.InvitationMessage(email.InvitationData{
		To:          notice.Email,
		InviterName: notice.InviterName,
		CompanyName: notice.CompanyName,
		Role:        string(notice.Role),
		InviteLink:  AcceptLink(n.baseURL, notice.Token),
	})
	if err != nil {
		log.Error("render invitation email", zap.Error(err))
		n.metrics.RecordNotificationFailure(ctx, "render")
		return
	}

	sendCtx, cancel := context.WithTimeout(obscontext.Detach(ctx), sendTimeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.provider.Send(sendCtx, msg); err != nil {
			log.Warn("invitation email not delivered", zap.Error(err))
			n.metrics.RecordNotificationFailure(sendCtx, "send")
			return
		}
		log.Debug("invitation email sent")
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (n *EmailNotifier) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
