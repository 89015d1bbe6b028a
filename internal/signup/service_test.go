package signup

import (
	"context"
	"testing"
	"time"

	auditrepository "github.com/aquivis/aquivis/internal/audit/repository"
	auditservice "github.com/aquivis/aquivis/internal/audit/service"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	authrepository "github.com/aquivis/aquivis/internal/auth/repository"
	authservice "github.com/aquivis/aquivis/internal/auth/service"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/signup/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	teamrepository "github.com/aquivis/aquivis/internal/team/repository"
	teamservice "github.com/aquivis/aquivis/internal/team/service"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, authdomain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &teamdomain.Profile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	users, sessions := authrepository.New(conn)
	auth := authservice.New(authservice.Params{
		Log: log, Repo: users, SessionRepo: sessions, GenID: node, Clock: clk,
	})
	team := teamservice.NewService(teamservice.Params{
		DB:   conn,
		Log:  log,
		Repo: teamrepository.NewRepository(conn),
		Audit: auditservice.NewService(auditservice.Params{
			DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
		}),
		Clock: clk,
	})

	svc := NewService(Params{DB: conn, Log: log, Auth: auth, Team: team})
	return svc, auth, conn
}

func TestSignupCreatesUnaffiliatedProfileAndSession(t *testing.T) {
	svc, auth, conn := newTestService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, domain.Request{Email: "New@Pools.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "new@pools.com", res.Profile.Email)
	assert.Nil(t, res.Profile.CompanyID)
	assert.Nil(t, res.Profile.Role)
	assert.NotEmpty(t, res.RawToken)

	session, err := auth.Authenticate(ctx, res.RawToken)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, session.UserID)

	var profiles int64
	require.NoError(t, conn.Model(&teamdomain.Profile{}).Count(&profiles).Error)
	assert.EqualValues(t, 1, profiles)
}

func TestSignupRejectsDuplicateAndWeakInput(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.Request{Email: "a@pools.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, domain.Request{Email: "A@pools.com", Password: "correct horse"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)

	_, err = svc.Signup(ctx, domain.Request{Email: "b@pools.com", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)

	_, err = svc.Signup(ctx, domain.Request{Email: "nope", Password: "correct horse"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	var users, profiles int64
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&users).Error)
	require.NoError(t, conn.Model(&teamdomain.Profile{}).Count(&profiles).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, profiles)
}
