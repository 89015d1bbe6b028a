package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	"github.com/aquivis/aquivis/internal/clock"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
	sched *Scheduler
}

func newFixture(t *testing.T, cfg Config, client *redis.Client) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.Session{}, &invitationdomain.Invitation{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	fake := clock.NewFakeClock(baseTime)

	sched, err := New(Params{
		DB:     conn,
		Log:    zaptest.NewLogger(t),
		GenID:  node,
		Clock:  fake,
		Redis:  client,
		Config: cfg,
	})
	require.NoError(t, err)

	return &fixture{db: conn, clock: fake, node: node, sched: sched}
}

func (f *fixture) session(t *testing.T, expiresAt time.Time, revokedAt *time.Time) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&authdomain.Session{
		ID:               id,
		UserID:           1,
		SessionTokenHash: id.String(),
		ExpiresAt:        expiresAt,
		RevokedAt:        revokedAt,
		CreatedAt:        baseTime,
		LastSeenAt:       baseTime,
	}).Error)
	return id
}

func (f *fixture) invitation(t *testing.T, expiresAt time.Time, acceptedAt *time.Time) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&invitationdomain.Invitation{
		ID:         id,
		CompanyID:  10,
		Email:      id.String() + "@pools.test",
		Role:       teamdomain.RoleTechnician,
		Token:      "tok-" + id.String(),
		InvitedBy:  1,
		CreatedAt:  expiresAt.Add(-7 * 24 * time.Hour),
		ExpiresAt:  expiresAt,
		AcceptedAt: acceptedAt,
	}).Error)
	return id
}

func remaining[T any](t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(new(T)).Count(&count).Error)
	return count
}

func TestPurgeSessionsKeepsRecentRows(t *testing.T) {
	f := newFixture(t, Config{SessionRetention: 24 * time.Hour, BatchSize: 2}, nil)

	longAgo := baseTime.Add(-72 * time.Hour)
	f.session(t, longAgo, nil)
	f.session(t, longAgo, nil)
	f.session(t, longAgo, nil)
	f.session(t, baseTime.Add(time.Hour), &longAgo)
	live := f.session(t, baseTime.Add(time.Hour), nil)
	recentlyExpired := f.session(t, baseTime.Add(-time.Hour), nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	var ids []snowflake.ID
	require.NoError(t, f.db.Model(&authdomain.Session{}).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []snowflake.ID{live, recentlyExpired}, ids)
}

func TestPurgeInvitationsKeepsAcceptedAndPending(t *testing.T) {
	f := newFixture(t, Config{InvitationRetention: 30 * 24 * time.Hour}, nil)

	stale := baseTime.Add(-31 * 24 * time.Hour)
	accepted := stale.Add(-time.Hour)
	f.invitation(t, stale, nil)
	keptAccepted := f.invitation(t, stale, &accepted)
	keptPending := f.invitation(t, baseTime.Add(24*time.Hour), nil)
	keptRecent := f.invitation(t, baseTime.Add(-24*time.Hour), nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	var ids []snowflake.ID
	require.NoError(t, f.db.Model(&invitationdomain.Invitation{}).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []snowflake.ID{keptAccepted, keptPending, keptRecent}, ids)
}

func TestPurgeFollowsClock(t *testing.T) {
	f := newFixture(t, Config{SessionRetention: time.Hour}, nil)
	f.session(t, baseTime.Add(-30*time.Minute), nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), remaining[authdomain.Session](t, f.db))

	f.clock.Advance(time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(0), remaining[authdomain.Session](t, f.db))
}

func TestEnabledJobsFilter(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"PURGE_INVITATIONS"}}, nil)
	longAgo := baseTime.Add(-365 * 24 * time.Hour)
	f.session(t, longAgo, nil)
	f.invitation(t, longAgo, nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, int64(1), remaining[authdomain.Session](t, f.db))
	assert.Equal(t, int64(0), remaining[invitationdomain.Invitation](t, f.db))
}

func TestRunSkipsWhenAnotherInstanceHoldsLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, Config{}, client)
	f.session(t, baseTime.Add(-365*24*time.Hour), nil)

	require.NoError(t, mr.Set(runLockKey, "other-instance"))
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), remaining[authdomain.Session](t, f.db))

	mr.Del(runLockKey)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(0), remaining[authdomain.Session](t, f.db))
	assert.False(t, mr.Exists(runLockKey), "lock is released after the run")
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigSplitsJobs(t *testing.T) {
	cfg := Config{EnabledJobs: splitJobs(" purge_sessions, ,purge_invitations ")}.withDefaults()
	assert.Equal(t, []string{"purge_sessions", "purge_invitations"}, cfg.EnabledJobs)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, 500, cfg.BatchSize)
}
