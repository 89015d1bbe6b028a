package server

import (
	"context"
	"time"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	"github.com/aquivis/aquivis/internal/auth/session"
	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	"github.com/aquivis/aquivis/internal/config"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	signupdomain "github.com/aquivis/aquivis/internal/signup/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	visitdomain "github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// -- Mocks --

// fakeAuthService maps raw session tokens to user ids.
type fakeAuthService struct {
	sessions map[string]snowflake.ID
	loginErr error
}

func (f *fakeAuthService) CreateUser(context.Context, *gorm.DB, authdomain.CreateUserRequest) (*authdomain.User, error) {
	return nil, nil
}

func (f *fakeAuthService) Login(_ context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &authdomain.LoginResult{
		User:      &authdomain.User{ID: 200, Email: req.Email},
		RawToken:  "login-token",
		ExpiresAt: time.Now().Add(time.Hour),
		SessionID: 300,
	}, nil
}

func (f *fakeAuthService) Logout(context.Context, string) error {
	return nil
}

func (f *fakeAuthService) Authenticate(_ context.Context, rawToken string) (*authdomain.Session, error) {
	userID, ok := f.sessions[rawToken]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{ID: 1, UserID: userID}, nil
}

func (f *fakeAuthService) GetUser(context.Context, snowflake.ID) (*authdomain.User, error) {
	return nil, authdomain.ErrUserNotFound
}

type teamMock struct {
	mock.Mock
	memberships map[snowflake.ID]teamdomain.Membership
}

func (m *teamMock) Resolve(_ context.Context, userID snowflake.ID) (*teamdomain.Membership, error) {
	membership, ok := m.memberships[userID]
	if !ok {
		return nil, teamdomain.ErrNoCompany
	}
	return &membership, nil
}

func (m *teamMock) EnsureProfile(context.Context, *gorm.DB, snowflake.ID, string) (*teamdomain.Profile, error) {
	return nil, nil
}

func (m *teamMock) GetProfile(ctx context.Context, userID snowflake.ID) (*teamdomain.Profile, error) {
	args := m.Called(ctx, userID)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*teamdomain.Profile), args.Error(1)
}

func (m *teamMock) UpdateProfile(ctx context.Context, userID snowflake.ID, req teamdomain.UpdateProfileRequest) (*teamdomain.Profile, error) {
	args := m.Called(ctx, userID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*teamdomain.Profile), args.Error(1)
}

func (m *teamMock) ListMembers(ctx context.Context, actor teamdomain.Membership) ([]teamdomain.MemberResponse, error) {
	args := m.Called(ctx, actor)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.([]teamdomain.MemberResponse), args.Error(1)
}

func (m *teamMock) UpdateRole(ctx context.Context, actor teamdomain.Membership, memberID string, role string) error {
	return m.Called(ctx, actor, memberID, role).Error(0)
}

func (m *teamMock) RemoveMember(ctx context.Context, actor teamdomain.Membership, memberID string) error {
	return m.Called(ctx, actor, memberID).Error(0)
}

type invitationMock struct {
	mock.Mock
}

func (m *invitationMock) Create(ctx context.Context, actor teamdomain.Membership, req invitationdomain.CreateRequest) (*invitationdomain.CreateResponse, error) {
	args := m.Called(ctx, actor, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*invitationdomain.CreateResponse), args.Error(1)
}

func (m *invitationMock) ListPending(ctx context.Context, actor teamdomain.Membership) ([]invitationdomain.PendingInvitation, error) {
	args := m.Called(ctx, actor)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.([]invitationdomain.PendingInvitation), args.Error(1)
}

func (m *invitationMock) Inspect(ctx context.Context, token string) (*invitationdomain.Invitation, error) {
	args := m.Called(ctx, token)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*invitationdomain.Invitation), args.Error(1)
}

func (m *invitationMock) Accept(ctx context.Context, token string, userID snowflake.ID) error {
	return m.Called(ctx, token, userID).Error(0)
}

func (m *invitationMock) Delete(ctx context.Context, actor teamdomain.Membership, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

type companyMock struct {
	mock.Mock
}

func (m *companyMock) Onboard(ctx context.Context, userID snowflake.ID, req companydomain.OnboardRequest) (*companydomain.CompanyResponse, error) {
	args := m.Called(ctx, userID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*companydomain.CompanyResponse), args.Error(1)
}

func (m *companyMock) Get(ctx context.Context, actor teamdomain.Membership) (*companydomain.CompanyResponse, error) {
	args := m.Called(ctx, actor)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*companydomain.CompanyResponse), args.Error(1)
}

func (m *companyMock) Update(ctx context.Context, actor teamdomain.Membership, req companydomain.UpdateRequest) (*companydomain.CompanyResponse, error) {
	args := m.Called(ctx, actor, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*companydomain.CompanyResponse), args.Error(1)
}

type propertyMock struct {
	mock.Mock
}

func (m *propertyMock) List(ctx context.Context, actor teamdomain.Membership) ([]propertydomain.PropertyResponse, error) {
	args := m.Called(ctx, actor)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.([]propertydomain.PropertyResponse), args.Error(1)
}

func (m *propertyMock) Get(ctx context.Context, actor teamdomain.Membership, id string) (*propertydomain.PropertyResponse, error) {
	args := m.Called(ctx, actor, id)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*propertydomain.PropertyResponse), args.Error(1)
}

func (m *propertyMock) Create(ctx context.Context, actor teamdomain.Membership, req propertydomain.CreateRequest) (*propertydomain.PropertyResponse, error) {
	args := m.Called(ctx, actor, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*propertydomain.PropertyResponse), args.Error(1)
}

func (m *propertyMock) Update(ctx context.Context, actor teamdomain.Membership, id string, req propertydomain.UpdateRequest) (*propertydomain.PropertyResponse, error) {
	args := m.Called(ctx, actor, id, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*propertydomain.PropertyResponse), args.Error(1)
}

func (m *propertyMock) AddUnit(ctx context.Context, actor teamdomain.Membership, propertyID string, req propertydomain.UnitRequest) (*propertydomain.UnitResponse, error) {
	args := m.Called(ctx, actor, propertyID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*propertydomain.UnitResponse), args.Error(1)
}

type visitMock struct {
	mock.Mock
}

func (m *visitMock) List(ctx context.Context, actor teamdomain.Membership, req visitdomain.ListRequest) ([]visitdomain.VisitResponse, error) {
	args := m.Called(ctx, actor, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.([]visitdomain.VisitResponse), args.Error(1)
}

func (m *visitMock) Get(ctx context.Context, actor teamdomain.Membership, id string) (*visitdomain.VisitDetail, error) {
	args := m.Called(ctx, actor, id)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.VisitDetail), args.Error(1)
}

func (m *visitMock) Create(ctx context.Context, actor teamdomain.Membership, req visitdomain.CreateRequest) (*visitdomain.VisitResponse, error) {
	args := m.Called(ctx, actor, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.VisitResponse), args.Error(1)
}

func (m *visitMock) Update(ctx context.Context, actor teamdomain.Membership, id string, req visitdomain.UpdateRequest) (*visitdomain.VisitResponse, error) {
	args := m.Called(ctx, actor, id, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.VisitResponse), args.Error(1)
}

func (m *visitMock) AddWaterTest(ctx context.Context, actor teamdomain.Membership, visitID string, req visitdomain.WaterTestRequest) (*visitdomain.WaterTest, error) {
	args := m.Called(ctx, actor, visitID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.WaterTest), args.Error(1)
}

func (m *visitMock) AddChemical(ctx context.Context, actor teamdomain.Membership, visitID string, req visitdomain.ChemicalRequest) (*visitdomain.ChemicalAddition, error) {
	args := m.Called(ctx, actor, visitID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.ChemicalAddition), args.Error(1)
}

func (m *visitMock) AddMaintenanceTask(ctx context.Context, actor teamdomain.Membership, visitID string, req visitdomain.MaintenanceRequest) (*visitdomain.MaintenanceTask, error) {
	args := m.Called(ctx, actor, visitID, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*visitdomain.MaintenanceTask), args.Error(1)
}

type fakeSignupService struct {
	result *signupdomain.Result
	err    error
	last   signupdomain.Request
}

func (f *fakeSignupService) Signup(_ context.Context, req signupdomain.Request) (*signupdomain.Result, error) {
	f.last = req
	return f.result, f.err
}

type fakeAuthorization struct {
	permissions map[teamdomain.Role][]string
}

func (f *fakeAuthorization) Authorize(context.Context, teamdomain.Membership, string, string) error {
	return nil
}

func (f *fakeAuthorization) Permissions(role teamdomain.Role) ([]string, error) {
	return f.permissions[role], nil
}

type fakeAuditService struct {
	last auditdomain.ListActivityRequest
	resp auditdomain.ListActivityResponse
	err  error
}

func (f *fakeAuditService) Record(context.Context, *gorm.DB, auditdomain.Entry) error {
	return nil
}

func (f *fakeAuditService) List(_ context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	f.last = req
	return f.resp, f.err
}

// -- Harness --

const (
	ownerToken      = "owner-token"
	technicianToken = "tech-token"
	newcomerToken   = "newcomer-token"

	ownerID      snowflake.ID = 11
	technicianID snowflake.ID = 12
	newcomerID   snowflake.ID = 13
	companyID    snowflake.ID = 500
)

var (
	ownerMembership = teamdomain.Membership{
		UserID: ownerID, Email: "olivia@bluepools.com", CompanyID: companyID, Role: teamdomain.RoleOwner,
	}
	technicianMembership = teamdomain.Membership{
		UserID: technicianID, Email: "tech@bluepools.com", CompanyID: companyID, Role: teamdomain.RoleTechnician,
	}
)

type harness struct {
	router  *gin.Engine
	server  *Server
	team    *teamMock
	invites *invitationMock
	company *companyMock
	props   *propertyMock
	visits  *visitMock
	signup  *fakeSignupService
	audit   *fakeAuditService
	auth    *fakeAuthService
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)

	h := &harness{
		team: &teamMock{memberships: map[snowflake.ID]teamdomain.Membership{
			ownerID:      ownerMembership,
			technicianID: technicianMembership,
		}},
		invites: &invitationMock{},
		company: &companyMock{},
		props:   &propertyMock{},
		visits:  &visitMock{},
		signup:  &fakeSignupService{},
		audit:   &fakeAuditService{},
		auth: &fakeAuthService{sessions: map[string]snowflake.ID{
			ownerToken:      ownerID,
			technicianToken: technicianID,
			newcomerToken:   newcomerID,
		}},
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	cfg := config.Config{AppBaseURL: "https://app.aquivis.test"}
	h.server = NewServer(ServerParams{
		Gin:         router,
		Cfg:         cfg,
		Authsvc:     h.auth,
		Sessions:    session.NewManager(cfg),
		Signupsvc:   h.signup,
		TeamSvc:     h.team,
		InviteSvc:   h.invites,
		CompanySvc:  h.company,
		PropertySvc: h.props,
		VisitSvc:    h.visits,
		AuthzSvc: &fakeAuthorization{permissions: map[teamdomain.Role][]string{
			teamdomain.RoleOwner: {"billing.view", "team.manage"},
		}},
		AuditSvc: h.audit,
	})
	h.router = router
	return h
}
