package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/clock"
	obsmetrics "github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/ratelimit"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const runLockKey = "scheduler:housekeeping:lock"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
	Redis   *redis.Client       `optional:"true"`
	Config  Config              `optional:"true"`
}

// Scheduler runs housekeeping jobs on a fixed interval. When Redis is
// configured only one instance runs a given tick.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	locker  *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
		locker:  ratelimit.NewLocker(p.Redis),
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.startRun(ctx, name)
	err := fn(ctx)
	s.finishRun(ctx, run, err)
	if err == nil {
		return nil
	}

	// a timed-out purge resumes on the next tick
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobError(ctx, name, "timeout")
		return nil
	}
	s.metrics.RecordJobError(ctx, name, "error")

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job a single time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	release, ok := s.acquireRun(parent)
	if !ok {
		return nil
	}
	defer release()

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobPurgeSessions, s.PurgeSessionsJob},
		{jobPurgeInvitations, s.PurgeInvitationsJob},
	}

	var err error
	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// acquireRun takes the cross-instance run lock. Without Redis, or when Redis
// is unreachable, the tick runs locally.
func (s *Scheduler) acquireRun(ctx context.Context) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	lease, err := s.locker.Acquire(ctx, runLockKey, s.cfg.RunInterval)
	if errors.Is(err, ratelimit.ErrNotAcquired) {
		s.log.Debug("scheduler tick owned by another instance")
		return nil, false
	}
	if err != nil {
		s.log.Warn("scheduler lock unavailable, running locally", zap.Error(err))
		return func() {}, true
	}
	return func() {
		if err := lease.Release(context.Background()); err != nil {
			s.log.Warn("release scheduler lock", zap.Error(err))
		}
	}, true
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func systemActor() (string, string) {
	return string(auditdomain.ActorTypeSystem), "scheduler"
}
