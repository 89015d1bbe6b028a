package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/aquivis/aquivis/internal/observability/metrics"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTeam         = "team"
	ObjectCompany      = "company"
	ObjectBilling      = "billing"
	ObjectSubscription = "subscription"
	ObjectProperty     = "property"
	ObjectService      = "service"
)

const (
	ActionTeamManage         = "team.manage"
	ActionCompanyManage      = "company.manage"
	ActionCompanyDelete      = "company.delete"
	ActionBillingView        = "billing.view"
	ActionSubscriptionManage = "subscription.manage"
	ActionPropertyView       = "property.view"
	ActionPropertyManage     = "property.manage"
	ActionServiceView        = "service.view"
	ActionServiceManage      = "service.manage"
	ActionServiceRecord      = "service.record"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Metrics  *metrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	metrics  *metrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor teamdomain.Membership, object string, action string) error {
	if actor.UserID <= 0 {
		return ErrInvalidActor
	}
	if actor.CompanyID <= 0 {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if _, err := teamdomain.ParseRole(string(actor.Role)); err != nil {
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", actor.UserID)
	domain := fmt.Sprintf("company:%s", actor.CompanyID)
	if err := s.ensureGrouping(subject, roleSubject(actor.Role), domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.metrics.RecordAuthorizationDenied(ctx, action)
		s.log.Info("authorization denied",
			zap.String("user_id", actor.UserID.String()),
			zap.String("company_id", actor.CompanyID.String()),
			zap.String("role", string(actor.Role)),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Permissions(role teamdomain.Role) ([]string, error) {
	rules, err := s.enforcer.GetFilteredPolicy(0, roleSubject(role))
	if err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		actions = append(actions, rule[2])
	}
	sort.Strings(actions)
	return actions, nil
}

// ensureGrouping keeps exactly one role link per subject and company, so a
// role change takes effect on the next check.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func roleSubject(role teamdomain.Role) string {
	return fmt.Sprintf("role:%s", strings.ToLower(strings.TrimSpace(string(role))))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	owner := roleSubject(teamdomain.RoleOwner)
	manager := roleSubject(teamdomain.RoleManager)
	technician := roleSubject(teamdomain.RoleTechnician)

	policies := [][]string{
		{owner, ObjectTeam, ActionTeamManage},
		{owner, ObjectCompany, ActionCompanyManage},
		{owner, ObjectCompany, ActionCompanyDelete},
		{owner, ObjectBilling, ActionBillingView},
		{owner, ObjectSubscription, ActionSubscriptionManage},
		{owner, ObjectProperty, ActionPropertyView},
		{owner, ObjectProperty, ActionPropertyManage},
		{owner, ObjectService, ActionServiceView},
		{owner, ObjectService, ActionServiceManage},
		{owner, ObjectService, ActionServiceRecord},

		{manager, ObjectTeam, ActionTeamManage},
		{manager, ObjectCompany, ActionCompanyManage},
		{manager, ObjectBilling, ActionBillingView},
		{manager, ObjectProperty, ActionPropertyView},
		{manager, ObjectProperty, ActionPropertyManage},
		{manager, ObjectService, ActionServiceView},
		{manager, ObjectService, ActionServiceManage},
		{manager, ObjectService, ActionServiceRecord},

		{technician, ObjectProperty, ActionPropertyView},
		{technician, ObjectService, ActionServiceView},
		{technician, ObjectService, ActionServiceRecord},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
