package service

import (
	"context"
	"strings"
	"testing"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	auditrepository "github.com/aquivis/aquivis/internal/audit/repository"
	auditservice "github.com/aquivis/aquivis/internal/audit/service"
	"github.com/aquivis/aquivis/internal/clock"
	"github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/internal/team/repository"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
	node  *snowflake.Node

	company snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Profile{}, &auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	audit := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
	})
	svc := NewService(Params{
		DB:    conn,
		Log:   log,
		Repo:  repository.NewRepository(conn),
		Audit: audit,
		Clock: clk,
	})
	return &fixture{db: conn, svc: svc, clock: clk, node: node, company: node.Generate()}
}

func (f *fixture) addMember(t *testing.T, email string, role domain.Role, company *snowflake.ID) domain.Membership {
	t.Helper()
	id := f.node.Generate()
	profile := domain.Profile{
		ID:        id,
		Email:     email,
		Role:      &role,
		CompanyID: company,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&profile).Error)
	m := domain.Membership{UserID: id, Email: email, Role: role}
	if company != nil {
		m.CompanyID = *company
	}
	return m
}

func (f *fixture) profile(t *testing.T, id snowflake.ID) domain.Profile {
	t.Helper()
	var p domain.Profile
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)
	loner := f.addMember(t, "loner@x.com", domain.RoleTechnician, nil)

	m, err := f.svc.Resolve(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, f.company, m.CompanyID)
	assert.Equal(t, domain.RoleOwner, m.Role)
	assert.True(t, m.CanManageTeam())

	_, err = f.svc.Resolve(ctx, loner.UserID)
	assert.ErrorIs(t, err, domain.ErrNoCompany)

	_, err = f.svc.Resolve(ctx, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrNoCompany)
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.node.Generate()

	p, err := f.svc.EnsureProfile(ctx, nil, id, " New@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", p.Email)
	assert.Nil(t, p.CompanyID)
	assert.Nil(t, p.Role)

	again, err := f.svc.EnsureProfile(ctx, nil, id, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	m := f.addMember(t, "tech@x.com", domain.RoleTechnician, &f.company)
	first := "  Grace "

	p, err := f.svc.UpdateProfile(context.Background(), m.UserID, domain.UpdateProfileRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.FirstName)

	stored := f.profile(t, m.UserID)
	assert.Equal(t, "Grace", stored.FirstName)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, m.UserID, *stored.UpdatedBy)

	long := strings.Repeat("x", 51)
	_, err = f.svc.UpdateProfile(context.Background(), m.UserID, domain.UpdateProfileRequest{LastName: &long})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestListMembersOwnersFirst(t *testing.T) {
	f := newFixture(t)
	tech := f.addMember(t, "tech@x.com", domain.RoleTechnician, &f.company)
	f.clock.Advance(time.Minute)
	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)
	other := f.node.Generate()
	f.addMember(t, "elsewhere@y.com", domain.RoleOwner, &other)

	members, err := f.svc.ListMembers(context.Background(), tech)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.UserID.String(), members[0].ID)
	assert.Equal(t, "owner@x.com", members[0].Name)
	assert.Equal(t, domain.RoleTechnician, members[1].Role)
}

func TestSoleOwnerCannotDemoteThemselves(t *testing.T) {
	f := newFixture(t)
	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)

	err := f.svc.UpdateRole(context.Background(), owner, owner.UserID.String(), "manager")
	assert.ErrorIs(t, err, domain.ErrSoleOwner)

	stored := f.profile(t, owner.UserID)
	assert.Equal(t, domain.RoleOwner, *stored.Role)
	assert.Zero(t, f.auditCount(t, auditdomain.ActionMemberRoleUpdated))
}

func TestOwnerCanBeDemotedWhenAnotherRemains(t *testing.T) {
	f := newFixture(t)
	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)
	second := f.addMember(t, "second@x.com", domain.RoleOwner, &f.company)

	require.NoError(t, f.svc.UpdateRole(context.Background(), owner, second.UserID.String(), "manager"))

	stored := f.profile(t, second.UserID)
	assert.Equal(t, domain.RoleManager, *stored.Role)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, owner.UserID, *stored.UpdatedBy)
	assert.Equal(t, int64(1), f.auditCount(t, auditdomain.ActionMemberRoleUpdated))

	err := f.svc.UpdateRole(context.Background(), owner, owner.UserID.String(), "technician")
	assert.ErrorIs(t, err, domain.ErrSoleOwner)
}

func TestUpdateRoleToSameRoleIsNoop(t *testing.T) {
	f := newFixture(t)
	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)

	require.NoError(t, f.svc.UpdateRole(context.Background(), owner, owner.UserID.String(), "owner"))
	assert.Zero(t, f.auditCount(t, auditdomain.ActionMemberRoleUpdated))
}

func TestUpdateRoleRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.addMember(t, "manager@x.com", domain.RoleManager, &f.company)
	tech := f.addMember(t, "tech@x.com", domain.RoleTechnician, &f.company)
	other := f.node.Generate()
	outsider := f.addMember(t, "outsider@y.com", domain.RoleTechnician, &other)

	cases := []struct {
		name   string
		actor  domain.Membership
		member string
		role   string
		want   error
	}{
		{"invalid role", manager, tech.UserID.String(), "portal", domain.ErrInvalidRole},
		{"invalid id", manager, "abc", "manager", domain.ErrInvalidMember},
		{"technician actor", tech, manager.UserID.String(), "technician", domain.ErrForbidden},
		{"cross tenant", manager, outsider.UserID.String(), "manager", domain.ErrCrossTenant},
		{"unknown member", manager, f.node.Generate().String(), "manager", domain.ErrMemberNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.UpdateRole(ctx, tc.actor, tc.member, tc.role)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	stored := f.profile(t, outsider.UserID)
	assert.Equal(t, domain.RoleTechnician, *stored.Role)
	assert.Equal(t, other, *stored.CompanyID)
}

func TestRemoveMemberDetaches(t *testing.T) {
	f := newFixture(t)
	manager := f.addMember(t, "manager@x.com", domain.RoleManager, &f.company)
	tech := f.addMember(t, "tech@x.com", domain.RoleTechnician, &f.company)

	require.NoError(t, f.svc.RemoveMember(context.Background(), manager, tech.UserID.String()))

	stored := f.profile(t, tech.UserID)
	assert.Nil(t, stored.CompanyID)
	assert.Equal(t, "tech@x.com", stored.Email)
	assert.Equal(t, int64(1), f.auditCount(t, auditdomain.ActionMemberRemoved))

	_, err := f.svc.Resolve(context.Background(), tech.UserID)
	assert.ErrorIs(t, err, domain.ErrNoCompany)
}

func TestRemoveMemberGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addMember(t, "owner@x.com", domain.RoleOwner, &f.company)
	manager := f.addMember(t, "manager@x.com", domain.RoleManager, &f.company)
	tech := f.addMember(t, "tech@x.com", domain.RoleTechnician, &f.company)

	assert.ErrorIs(t, f.svc.RemoveMember(ctx, manager, manager.UserID.String()), domain.ErrSelfRemoval)
	assert.ErrorIs(t, f.svc.RemoveMember(ctx, tech, manager.UserID.String()), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.RemoveMember(ctx, manager, owner.UserID.String()), domain.ErrSoleOwner)

	stored := f.profile(t, owner.UserID)
	require.NotNil(t, stored.CompanyID)
	assert.Equal(t, f.company, *stored.CompanyID)

	second := f.addMember(t, "second@x.com", domain.RoleOwner, &f.company)
	require.NoError(t, f.svc.RemoveMember(ctx, manager, second.UserID.String()))
}
