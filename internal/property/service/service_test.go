package service

import (
	"context"
	"strings"
	"testing"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	auditrepository "github.com/aquivis/aquivis/internal/audit/repository"
	auditservice "github.com/aquivis/aquivis/internal/audit/service"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/clock"
	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	"github.com/aquivis/aquivis/internal/property/domain"
	"github.com/aquivis/aquivis/internal/property/repository"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const (
	companyA snowflake.ID = 100
	companyB snowflake.ID = 200
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&companydomain.Company{},
		&domain.Property{},
		&domain.Unit{},
		&auditdomain.AuditLog{},
	))

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for id, tz := range map[snowflake.ID]string{companyA: "Australia/Sydney", companyB: "UTC"} {
		require.NoError(t, conn.Create(&companydomain.Company{
			ID: id, Name: "Company " + id.String(), Slug: "c-" + id.String(), Timezone: tz,
			CreatedAt: now, UpdatedAt: now,
		}).Error)
	}

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)
	log := zaptest.NewLogger(t)

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  repository.NewRepository(conn),
		Authz: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		Audit: auditservice.NewService(auditservice.Params{
			DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
		}),
		Clock: clk,
	})
	return &fixture{db: conn, svc: svc, clock: clk}
}

func member(company snowflake.ID, userID snowflake.ID, role teamdomain.Role) teamdomain.Membership {
	return teamdomain.Membership{UserID: userID, Email: "user@bluepools.com", CompanyID: company, Role: role}
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

func TestCreateInheritsCompanyTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)

	resp, err := f.svc.Create(ctx, owner, domain.CreateRequest{
		Name:    "  Harbour View Apartments ",
		Address: strPtr(" 12 Beach Rd "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Harbour View Apartments", resp.Name)
	assert.Equal(t, "12 Beach Rd", *resp.Address)
	assert.Equal(t, "Australia/Sydney", resp.Timezone)
	assert.Empty(t, resp.Units)
	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionPropertyCreated))

	explicit, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Resort", Timezone: "Pacific/Auckland"})
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", explicit.Timezone)
	assert.Nil(t, explicit.Address)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"blank name", domain.CreateRequest{Name: "  "}, domain.ErrInvalidName},
		{"long address", domain.CreateRequest{Name: "x", Address: strPtr(strings.Repeat("a", 256))}, domain.ErrInvalidAddress},
		{"bad timezone", domain.CreateRequest{Name: "x", Timezone: "Mars/Base"}, domain.ErrInvalidTimezone},
		{"local timezone", domain.CreateRequest{Name: "x", Timezone: "Local"}, domain.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, owner, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTechnicianCanViewButNotManage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)
	tech := member(companyA, 2, teamdomain.RoleTechnician)
	portal := member(companyA, 3, teamdomain.RolePortal)

	created, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Harbour View"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, tech, domain.CreateRequest{Name: "Nope"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
	_, err = f.svc.AddUnit(ctx, tech, created.ID, domain.UnitRequest{Name: "Pool", UnitType: "pool", WaterType: "chlorine"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	list, err := f.svc.List(ctx, tech)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.List(ctx, portal)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestPropertiesAreScopedToCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerA := member(companyA, 1, teamdomain.RoleOwner)
	ownerB := member(companyB, 9, teamdomain.RoleOwner)

	created, err := f.svc.Create(ctx, ownerA, domain.CreateRequest{Name: "Harbour View"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, ownerB, created.ID)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	_, err = f.svc.Update(ctx, ownerB, created.ID, domain.UpdateRequest{Name: strPtr("Stolen")})
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	_, err = f.svc.AddUnit(ctx, ownerB, created.ID, domain.UnitRequest{Name: "Pool", UnitType: "pool", WaterType: "chlorine"})
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	list, err := f.svc.List(ctx, ownerB)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Get(ctx, ownerA, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidPropertyID)
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := member(companyA, 4, teamdomain.RoleManager)

	created, err := f.svc.Create(ctx, manager, domain.CreateRequest{
		Name:    "Harbour View",
		Address: strPtr("12 Beach Rd"),
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	units := true
	updated, err := f.svc.Update(ctx, manager, created.ID, domain.UpdateRequest{HasIndividualUnits: &units})
	require.NoError(t, err)
	assert.Equal(t, "Harbour View", updated.Name)
	assert.Equal(t, "12 Beach Rd", *updated.Address)
	assert.True(t, updated.HasIndividualUnits)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	cleared, err := f.svc.Update(ctx, manager, created.ID, domain.UpdateRequest{
		Address:  strPtr(" "),
		Timezone: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.Address)
	assert.Equal(t, "Australia/Sydney", cleared.Timezone)

	_, err = f.svc.Update(ctx, manager, created.ID, domain.UpdateRequest{Name: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	assert.EqualValues(t, 2, f.auditCount(t, auditdomain.ActionPropertyUpdated))
}

func TestAddUnitAttachesToProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)

	created, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Harbour View"})
	require.NoError(t, err)

	volume := 50000.0
	pool, err := f.svc.AddUnit(ctx, owner, created.ID, domain.UnitRequest{
		Name: "Main Pool", UnitType: " Pool ", WaterType: "SALTWATER", VolumeLitres: &volume,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnitTypePool, pool.UnitType)
	assert.Equal(t, domain.WaterTypeSaltwater, pool.WaterType)
	assert.True(t, pool.IsActive)
	assert.Equal(t, created.ID, pool.PropertyID)

	inactive := false
	f.clock.Advance(time.Minute)
	_, err = f.svc.AddUnit(ctx, owner, created.ID, domain.UnitRequest{
		Name: "Spa", UnitType: "spa", WaterType: "bromine", IsActive: &inactive,
	})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "Main Pool", got.Units[0].Name)
	assert.False(t, got.Units[1].IsActive)
	assert.EqualValues(t, 2, f.auditCount(t, auditdomain.ActionUnitCreated))
}

func TestAddUnitValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)

	created, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Harbour View"})
	require.NoError(t, err)

	negative := -1.0
	tests := []struct {
		name string
		req  domain.UnitRequest
		want error
	}{
		{"blank name", domain.UnitRequest{UnitType: "pool", WaterType: "chlorine"}, domain.ErrInvalidUnitName},
		{"unknown unit type", domain.UnitRequest{Name: "x", UnitType: "lake", WaterType: "chlorine"}, domain.ErrInvalidUnitType},
		{"unknown water type", domain.UnitRequest{Name: "x", UnitType: "pool", WaterType: "ozone"}, domain.ErrInvalidWaterType},
		{"negative volume", domain.UnitRequest{Name: "x", UnitType: "pool", WaterType: "chlorine", VolumeLitres: &negative}, domain.ErrInvalidVolume},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddUnit(ctx, owner, created.ID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListReturnsNewestFirstWithUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := member(companyA, 1, teamdomain.RoleOwner)

	older, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Older"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Newer"})
	require.NoError(t, err)
	_, err = f.svc.AddUnit(ctx, owner, older.ID, domain.UnitRequest{Name: "Pool", UnitType: "pool", WaterType: "chlorine"})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Name)
	assert.Empty(t, list[0].Units)
	assert.Equal(t, "Older", list[1].Name)
	assert.Len(t, list[1].Units, 1)
}
