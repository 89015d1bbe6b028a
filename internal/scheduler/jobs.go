package scheduler

import (
	"context"

	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	jobPurgeSessions    = "purge_sessions"
	jobPurgeInvitations = "purge_invitations"
)

// PurgeSessionsJob deletes sessions that expired or were revoked longer ago
// than the session retention.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)
	return s.purgeInBatches(ctx, jobPurgeSessions, &authdomain.Session{}, func(q *gorm.DB) *gorm.DB {
		return q.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff)
	})
}

// PurgeInvitationsJob deletes unaccepted invitations that expired longer ago
// than the invitation retention. Accepted invitations are kept.
func (s *Scheduler) PurgeInvitationsJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.InvitationRetention)
	return s.purgeInBatches(ctx, jobPurgeInvitations, &invitationdomain.Invitation{}, func(q *gorm.DB) *gorm.DB {
		return q.Where("accepted_at IS NULL AND expires_at < ?", cutoff)
	})
}

func (s *Scheduler) purgeInBatches(ctx context.Context, job string, model any, scope func(*gorm.DB) *gorm.DB) error {
	run := jobRunFromContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ids []snowflake.ID
		err := scope(s.db.WithContext(ctx).Model(model)).
			Order("id").
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		run.addPurged(int(res.RowsAffected))
		s.metrics.RecordHousekeepingPurged(ctx, job, int(res.RowsAffected))

		if len(ids) < s.cfg.BatchSize {
			return nil
		}
	}
}
