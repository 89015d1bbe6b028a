package service

import (
	"context"
	"math"
	"testing"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	auditrepository "github.com/aquivis/aquivis/internal/audit/repository"
	auditservice "github.com/aquivis/aquivis/internal/audit/service"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/clock"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	propertyrepository "github.com/aquivis/aquivis/internal/property/repository"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	teamrepository "github.com/aquivis/aquivis/internal/team/repository"
	"github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/aquivis/aquivis/internal/visit/repository"
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

	ownerID     snowflake.ID = 1
	techID      snowflake.ID = 2
	otherTechID snowflake.ID = 3
	portalID    snowflake.ID = 4
	outsiderID  snowflake.ID = 5

	harbourID snowflake.ID = 1000
	resortID  snowflake.ID = 1001
	poolID    snowflake.ID = 2000
	spaID     snowflake.ID = 2001
	foreignID snowflake.ID = 1002
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
		&teamdomain.Profile{},
		&propertydomain.Property{},
		&propertydomain.Unit{},
		&domain.Visit{},
		&domain.WaterTest{},
		&domain.ChemicalAddition{},
		&domain.MaintenanceTask{},
		&auditdomain.AuditLog{},
	))

	now := time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)
	seedProfiles(t, conn, now)
	address := "12 Beach Rd"
	for _, p := range []propertydomain.Property{
		{ID: harbourID, CompanyID: companyA, Name: "Harbour View", Address: &address, Timezone: "UTC", CreatedAt: now, UpdatedAt: now},
		{ID: resortID, CompanyID: companyA, Name: "Resort", Timezone: "UTC", CreatedAt: now, UpdatedAt: now},
		{ID: foreignID, CompanyID: companyB, Name: "Elsewhere", Timezone: "UTC", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&p).Error)
	}
	for _, u := range []propertydomain.Unit{
		{ID: poolID, PropertyID: harbourID, CompanyID: companyA, Name: "Main Pool", UnitType: propertydomain.UnitTypePool, WaterType: propertydomain.WaterTypeChlorine, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: spaID, PropertyID: resortID, CompanyID: companyA, Name: "Spa", UnitType: propertydomain.UnitTypeSpa, WaterType: propertydomain.WaterTypeBromine, IsActive: true, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&u).Error)
	}

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)
	log := zaptest.NewLogger(t)

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Repo:         repository.NewRepository(conn),
		PropertyRepo: propertyrepository.NewRepository(conn),
		TeamRepo:     teamrepository.NewRepository(conn),
		Authz:        authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		Audit: auditservice.NewService(auditservice.Params{
			DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
		}),
		Clock: clk,
	})
	return &fixture{db: conn, svc: svc, clock: clk}
}

func seedProfiles(t *testing.T, conn *gorm.DB, now time.Time) {
	t.Helper()
	rows := []struct {
		id      snowflake.ID
		email   string
		first   string
		company snowflake.ID
		role    teamdomain.Role
	}{
		{ownerID, "olivia@bluepools.com", "Olivia", companyA, teamdomain.RoleOwner},
		{techID, "tom@bluepools.com", "Tom", companyA, teamdomain.RoleTechnician},
		{otherTechID, "tia@bluepools.com", "Tia", companyA, teamdomain.RoleTechnician},
		{portalID, "client@example.com", "Client", companyA, teamdomain.RolePortal},
		{outsiderID, "ben@otherpools.com", "Ben", companyB, teamdomain.RoleTechnician},
	}
	for _, r := range rows {
		company, role := r.company, r.role
		require.NoError(t, conn.Create(&teamdomain.Profile{
			ID: r.id, Email: r.email, FirstName: r.first, LastName: "Smith",
			CompanyID: &company, Role: &role, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}
}

func actor(id snowflake.ID, role teamdomain.Role) teamdomain.Membership {
	return teamdomain.Membership{UserID: id, Email: "user@bluepools.com", CompanyID: companyA, Role: role}
}

var (
	owner  = actor(ownerID, teamdomain.RoleOwner)
	tech   = actor(techID, teamdomain.RoleTechnician)
	other  = actor(otherTechID, teamdomain.RoleTechnician)
	portal = actor(portalID, teamdomain.RolePortal)
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func idPtr(id snowflake.ID) *string {
	s := id.String()
	return &s
}

func (f *fixture) schedule(t *testing.T, date string) *domain.VisitResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), owner, domain.CreateRequest{
		PropertyID:   harbourID.String(),
		UnitID:       idPtr(poolID),
		TechnicianID: idPtr(techID),
		ServiceDate:  date,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return resp
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func TestCreateJoinsPropertyUnitAndTechnician(t *testing.T) {
	f := newFixture(t)

	resp := f.schedule(t, "2026-06-03")
	assert.Equal(t, harbourID.String(), resp.PropertyID)
	assert.Equal(t, "2026-06-03", resp.ServiceDate)
	assert.Equal(t, domain.StatusScheduled, resp.Status)
	assert.Equal(t, "Harbour View", resp.Property.Name)
	assert.Equal(t, "12 Beach Rd", *resp.Property.Address)
	require.NotNil(t, resp.Unit)
	assert.Equal(t, "Main Pool", resp.Unit.Name)
	require.NotNil(t, resp.Technician)
	assert.Equal(t, "Tom", resp.Technician.FirstName)
	assert.Equal(t, "tom@bluepools.com", resp.Technician.Email)
	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionVisitCreated))

	bare, err := f.svc.Create(context.Background(), owner, domain.CreateRequest{
		PropertyID:  resortID.String(),
		ServiceDate: "2026-06-04",
		Status:      "in_progress",
		Notes:       strPtr("  gate code 1234 "),
	})
	require.NoError(t, err)
	assert.Nil(t, bare.Unit)
	assert.Nil(t, bare.Technician)
	assert.Equal(t, domain.StatusInProgress, bare.Status)
	assert.Equal(t, "gate code 1234", *bare.Notes)
}

func TestCreateRejectsForeignAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"malformed property", domain.CreateRequest{PropertyID: "x", ServiceDate: "2026-06-03"}, propertydomain.ErrInvalidPropertyID},
		{"other company's property", domain.CreateRequest{PropertyID: foreignID.String(), ServiceDate: "2026-06-03"}, propertydomain.ErrInvalidPropertyID},
		{"unit of another property", domain.CreateRequest{PropertyID: harbourID.String(), UnitID: idPtr(spaID), ServiceDate: "2026-06-03"}, domain.ErrInvalidUnitID},
		{"unknown unit", domain.CreateRequest{PropertyID: harbourID.String(), UnitID: idPtr(9999), ServiceDate: "2026-06-03"}, domain.ErrInvalidUnitID},
		{"technician elsewhere", domain.CreateRequest{PropertyID: harbourID.String(), TechnicianID: idPtr(outsiderID), ServiceDate: "2026-06-03"}, domain.ErrInvalidTechnicianID},
		{"portal as technician", domain.CreateRequest{PropertyID: harbourID.String(), TechnicianID: idPtr(portalID), ServiceDate: "2026-06-03"}, domain.ErrInvalidTechnicianID},
		{"bad date", domain.CreateRequest{PropertyID: harbourID.String(), ServiceDate: "03/06/2026"}, domain.ErrInvalidServiceDate},
		{"bad status", domain.CreateRequest{PropertyID: harbourID.String(), ServiceDate: "2026-06-03", Status: "done"}, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, owner, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&domain.Visit{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTechnicianCannotScheduleVisits(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), tech, domain.CreateRequest{
		PropertyID:  harbourID.String(),
		ServiceDate: "2026-06-03",
	})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.List(context.Background(), portal, domain.ListRequest{})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestListFiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := f.schedule(t, "2026-06-02")
	late := f.schedule(t, "2026-06-05")
	sameDay := f.schedule(t, "2026-06-05")
	_, err := f.svc.Create(ctx, owner, domain.CreateRequest{
		PropertyID: resortID.String(), UnitID: idPtr(spaID), ServiceDate: "2026-06-05", Status: "completed",
	})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, tech, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2026-06-02", all[3].ServiceDate)
	assert.Equal(t, early.ID, all[3].ID)

	byProperty, err := f.svc.List(ctx, owner, domain.ListRequest{PropertyID: harbourID.String()})
	require.NoError(t, err)
	require.Len(t, byProperty, 3)
	assert.Equal(t, sameDay.ID, byProperty[0].ID, "same service date orders by creation, newest first")
	assert.Equal(t, late.ID, byProperty[1].ID)

	byDate, err := f.svc.List(ctx, owner, domain.ListRequest{Date: "2026-06-05", UnitID: poolID.String()})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byStatus, err := f.svc.List(ctx, owner, domain.ListRequest{Status: "Completed"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Spa", byStatus[0].Unit.Name)

	_, err = f.svc.List(ctx, owner, domain.ListRequest{Date: "tomorrow"})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceDate)
	_, err = f.svc.List(ctx, owner, domain.ListRequest{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestAssignedTechnicianRecordsOnOwnVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := f.schedule(t, "2026-06-03")

	test, err := f.svc.AddWaterTest(ctx, tech, visit.ID, domain.WaterTestRequest{
		PH: floatPtr(7.4), Chlorine: floatPtr(2.5), Temperature: floatPtr(27),
	})
	require.NoError(t, err)
	assert.Equal(t, 7.4, *test.PH)
	assert.Nil(t, test.Salt)

	_, err = f.svc.AddChemical(ctx, tech, visit.ID, domain.ChemicalRequest{
		ChemicalType: " Liquid chlorine ", Quantity: 2.5, UnitOfMeasure: "L", Cost: floatPtr(12.5),
	})
	require.NoError(t, err)

	_, err = f.svc.AddMaintenanceTask(ctx, tech, visit.ID, domain.MaintenanceRequest{TaskType: "filter_clean", Completed: true})
	require.NoError(t, err)

	status := "completed"
	updated, err := f.svc.Update(ctx, tech, visit.ID, domain.UpdateRequest{Status: &status, Notes: strPtr("all good")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)

	_, err = f.svc.AddWaterTest(ctx, other, visit.ID, domain.WaterTestRequest{PH: floatPtr(7.2)})
	assert.ErrorIs(t, err, authorization.ErrForbidden, "only the assigned technician may record")
	_, err = f.svc.Update(ctx, tech, visit.ID, domain.UpdateRequest{TechnicianID: idPtr(otherTechID)})
	assert.ErrorIs(t, err, authorization.ErrForbidden, "technicians cannot reassign")

	detail, err := f.svc.Get(ctx, other, visit.ID)
	require.NoError(t, err)
	assert.Len(t, detail.WaterTests, 1)
	require.Len(t, detail.Chemicals, 1)
	assert.Equal(t, "Liquid chlorine", detail.Chemicals[0].ChemicalType)
	require.Len(t, detail.MaintenanceTasks, 1)
	assert.True(t, detail.MaintenanceTasks[0].Completed)
	assert.Equal(t, "all good", *detail.Notes)

	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionWaterTestRecorded))
	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionChemicalAdded))
	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionMaintenanceAdded))
	assert.EqualValues(t, 1, f.auditCount(t, auditdomain.ActionVisitUpdated))
}

func TestOwnerReassignsVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := f.schedule(t, "2026-06-03")

	updated, err := f.svc.Update(ctx, owner, visit.ID, domain.UpdateRequest{
		TechnicianID: idPtr(otherTechID),
		UnitID:       strPtr(""),
		ServiceDate:  strPtr("2026-06-10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tia", updated.Technician.FirstName)
	assert.Nil(t, updated.Unit)
	assert.Nil(t, updated.UnitID)
	assert.Equal(t, "2026-06-10", updated.ServiceDate)

	_, err = f.svc.Update(ctx, owner, visit.ID, domain.UpdateRequest{UnitID: idPtr(spaID)})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitID)

	_, err = f.svc.AddWaterTest(ctx, tech, visit.ID, domain.WaterTestRequest{PH: floatPtr(7.2)})
	assert.ErrorIs(t, err, authorization.ErrForbidden, "previous technician lost access")
}

func TestRecordsRejectedOnCancelledVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := f.schedule(t, "2026-06-03")

	_, err := f.svc.Update(ctx, owner, visit.ID, domain.UpdateRequest{Status: strPtr("cancelled")})
	require.NoError(t, err)

	_, err = f.svc.AddWaterTest(ctx, tech, visit.ID, domain.WaterTestRequest{PH: floatPtr(7.2)})
	assert.ErrorIs(t, err, domain.ErrVisitCancelled)
	_, err = f.svc.AddMaintenanceTask(ctx, owner, visit.ID, domain.MaintenanceRequest{TaskType: "vacuum"})
	assert.ErrorIs(t, err, domain.ErrVisitCancelled)
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := f.schedule(t, "2026-06-03")

	waterTests := []struct {
		name string
		req  domain.WaterTestRequest
		want error
	}{
		{"no readings", domain.WaterTestRequest{Notes: strPtr("forgot kit")}, domain.ErrEmptyWaterTest},
		{"ph above scale", domain.WaterTestRequest{PH: floatPtr(14.5)}, domain.ErrInvalidReading},
		{"negative chlorine", domain.WaterTestRequest{Chlorine: floatPtr(-1)}, domain.ErrInvalidReading},
		{"nan salt", domain.WaterTestRequest{Salt: floatPtr(math.NaN())}, domain.ErrInvalidReading},
		{"boiling", domain.WaterTestRequest{Temperature: floatPtr(99)}, domain.ErrInvalidReading},
	}
	for _, tt := range waterTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddWaterTest(ctx, owner, visit.ID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.AddChemical(ctx, owner, visit.ID, domain.ChemicalRequest{ChemicalType: "acid", Quantity: 0, UnitOfMeasure: "L"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.svc.AddChemical(ctx, owner, visit.ID, domain.ChemicalRequest{ChemicalType: "acid", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidMeasure)
	_, err = f.svc.AddChemical(ctx, owner, visit.ID, domain.ChemicalRequest{ChemicalType: "acid", Quantity: 1, UnitOfMeasure: "L", Cost: floatPtr(-2)})
	assert.ErrorIs(t, err, domain.ErrInvalidCost)
	_, err = f.svc.AddMaintenanceTask(ctx, owner, visit.ID, domain.MaintenanceRequest{TaskType: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidTaskType)
	_, err = f.svc.AddWaterTest(ctx, owner, "nope", domain.WaterTestRequest{PH: floatPtr(7)})
	assert.ErrorIs(t, err, domain.ErrInvalidVisitID)
}

func TestVisitsAreScopedToCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := f.schedule(t, "2026-06-03")
	outsider := teamdomain.Membership{UserID: outsiderID, CompanyID: companyB, Role: teamdomain.RoleOwner}

	_, err := f.svc.Get(ctx, outsider, visit.ID)
	assert.ErrorIs(t, err, domain.ErrVisitNotFound)
	_, err = f.svc.AddWaterTest(ctx, outsider, visit.ID, domain.WaterTestRequest{PH: floatPtr(7)})
	assert.ErrorIs(t, err, domain.ErrVisitNotFound)

	list, err := f.svc.List(ctx, outsider, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
