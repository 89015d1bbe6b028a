package scheduler

import (
	"context"
	"time"

	obscontext "github.com/aquivis/aquivis/internal/observability/context"
	obslogger "github.com/aquivis/aquivis/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a housekeeping job.
type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	purged    int
}

type jobRunKey struct{}

func (r *jobRun) addPurged(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.purged += count
}

// startRun attaches a fresh run to ctx and marks the scheduler as the actor.
func (s *Scheduler) startRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	actorType, actorID := systemActor()
	ctx = obscontext.WithActor(ctx, actorType, actorID)

	s.logger(ctx).Debug("scheduler.job.start",
		zap.String("job", job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", s.cfg.BatchSize),
	)
	return ctx, run
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobRun, err error) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Duration("elapsed", s.clock.Now().Sub(run.startedAt)),
		zap.Int("purged", run.purged),
	}
	if err != nil {
		s.logger(ctx).Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func jobRunFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
