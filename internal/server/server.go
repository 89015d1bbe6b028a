package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aquivis/aquivis/internal/audit"
	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	"github.com/aquivis/aquivis/internal/auth"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	"github.com/aquivis/aquivis/internal/auth/session"
	"github.com/aquivis/aquivis/internal/authorization"
	"github.com/aquivis/aquivis/internal/company"
	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	"github.com/aquivis/aquivis/internal/config"
	"github.com/aquivis/aquivis/internal/invitation"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/aquivis/aquivis/internal/observability"
	obsmiddleware "github.com/aquivis/aquivis/internal/observability/logger"
	obsmetrics "github.com/aquivis/aquivis/internal/observability/metrics"
	obstracing "github.com/aquivis/aquivis/internal/observability/tracing"
	"github.com/aquivis/aquivis/internal/property"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	"github.com/aquivis/aquivis/internal/providers"
	"github.com/aquivis/aquivis/internal/ratelimit"
	"github.com/aquivis/aquivis/internal/signup"
	signupdomain "github.com/aquivis/aquivis/internal/signup/domain"
	"github.com/aquivis/aquivis/internal/team"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/internal/visit"
	visitdomain "github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	ratelimit.Module,
	authorization.Module,
	audit.Module,
	auth.Module,
	team.Module,
	invitation.Module,
	company.Module,
	signup.Module,
	property.Module,
	visit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

const (
	acceptRequestsPerMinute = 30
	authRequestsPerMinute   = 10
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	authsvc       authdomain.Service
	sessions      *session.Manager
	signupsvc     signupdomain.Service
	teamSvc       teamdomain.Service
	inviteSvc     invitationdomain.Service
	companySvc    companydomain.Service
	propertySvc   propertydomain.Service
	visitSvc      visitdomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	obsMetrics    *obsmetrics.Metrics
	acceptLimiter *rateLimiter
	authLimiter   *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Authsvc     authdomain.Service
	Sessions    *session.Manager
	Signupsvc   signupdomain.Service
	TeamSvc     teamdomain.Service
	InviteSvc   invitationdomain.Service
	CompanySvc  companydomain.Service
	PropertySvc propertydomain.Service
	VisitSvc    visitdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		signupsvc:     p.Signupsvc,
		teamSvc:       p.TeamSvc,
		inviteSvc:     p.InviteSvc,
		companySvc:    p.CompanySvc,
		propertySvc:   p.PropertySvc,
		visitSvc:      p.VisitSvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
		acceptLimiter: newRateLimiter(acceptRequestsPerMinute, time.Minute),
		authLimiter:   newRateLimiter(authRequestsPerMinute, time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.ClientRateLimit(s.authLimiter, "auth_signup"), s.Signup)
	auth.POST("/login", s.ClientRateLimit(s.authLimiter, "auth_login"), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Public invitation acceptance --------
	api.GET("/invite/accept", s.ClientRateLimit(s.acceptLimiter, "invite_accept"), s.AcceptInvitationRedirect)
	api.POST("/invite/accept", s.ClientRateLimit(s.acceptLimiter, "invite_accept"), s.AcceptInvitation)

	authed := api.Group("", s.AuthRequired())
	authed.POST("/onboarding/complete", s.CompleteOnboarding)
	authed.PATCH("/profile", s.UpdateProfile)

	member := authed.Group("", s.CompanyRequired())

	// -------- Team --------
	member.GET("/team", s.ListTeam)
	member.PATCH("/team/:id", s.UpdateMemberRole)
	member.DELETE("/team/:id", s.RemoveMember)

	// -------- Invitations --------
	member.POST("/team/invite", s.InviteMember)
	member.GET("/team/invitations", s.ListInvitations)
	member.DELETE("/team/invitations", s.DeleteInvitation)

	// -------- Company --------
	member.GET("/company", s.GetCompany)
	member.PATCH("/company", s.UpdateCompany)

	// -------- Properties --------
	member.GET("/properties", s.ListProperties)
	member.POST("/properties", s.CreateProperty)
	member.GET("/properties/:id", s.GetProperty)
	member.PATCH("/properties/:id", s.UpdateProperty)
	member.POST("/properties/:id/units", s.CreateUnit)

	// -------- Service visits --------
	member.GET("/services", s.ListVisits)
	member.POST("/services", s.CreateVisit)
	member.GET("/services/:id", s.GetVisit)
	member.PATCH("/services/:id", s.UpdateVisit)
	member.POST("/services/:id/water-tests", s.AddWaterTest)
	member.POST("/services/:id/chemicals", s.AddChemical)
	member.POST("/services/:id/maintenance", s.AddMaintenanceTask)

	member.GET("/activity", s.ListActivity)
}
