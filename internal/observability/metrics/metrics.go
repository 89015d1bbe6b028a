package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the team workflow instruments.
type Metrics struct {
	invitationsCreated   metric.Int64Counter
	invitationsAccepted  metric.Int64Counter
	invitationsRejected  metric.Int64Counter
	invitationsDeleted   metric.Int64Counter
	roleChanges          metric.Int64Counter
	membersRemoved       metric.Int64Counter
	ownerGuardTrips      metric.Int64Counter
	notificationFailures metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
	authzDenied          metric.Int64Counter
	housekeepingPurged   metric.Int64Counter
	jobErrors            metric.Int64Counter
	fieldRecords         metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "aquivis"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.invitationsCreated, "aquivis_team_invitations_created_total", "Invitations issued."},
		{&m.invitationsAccepted, "aquivis_team_invitations_accepted_total", "Invitations consumed."},
		{&m.invitationsRejected, "aquivis_team_invitations_rejected_total", "Accept attempts refused, by reason."},
		{&m.invitationsDeleted, "aquivis_team_invitations_deleted_total", "Pending invitations revoked."},
		{&m.roleChanges, "aquivis_team_role_changes_total", "Member role updates."},
		{&m.membersRemoved, "aquivis_team_members_removed_total", "Members detached from a company."},
		{&m.ownerGuardTrips, "aquivis_team_owner_guard_total", "Mutations refused to keep a company owner."},
		{&m.notificationFailures, "aquivis_notification_failures_total", "Invitation emails that could not be sent."},
		{&m.rateLimitDenied, "aquivis_rate_limit_denied_total", "Requests refused by a rate limiter."},
		{&m.authzDenied, "aquivis_authorization_denied_total", "Capability checks that failed, by action."},
		{&m.housekeepingPurged, "aquivis_housekeeping_purged_total", "Rows removed by housekeeping jobs."},
		{&m.jobErrors, "aquivis_scheduler_job_errors_total", "Scheduler job runs that failed or timed out."},
		{&m.fieldRecords, "aquivis_service_records_total", "Properties, units, visits and visit records written, by kind."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	return m, nil
}

func (m *Metrics) RecordInvitationCreated(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.invitationsCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("role", role))...))
}

func (m *Metrics) RecordInvitationAccepted(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.invitationsAccepted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("role", role))...))
}

func (m *Metrics) RecordInvitationRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.invitationsRejected.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("reason", reason))...))
}

func (m *Metrics) RecordInvitationDeleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.invitationsDeleted.Add(ctx, 1)
}

func (m *Metrics) RecordRoleChange(ctx context.Context, fromRole, toRole string) {
	if m == nil {
		return
	}
	m.roleChanges.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from_role", fromRole),
		attribute.String("role", toRole),
	)...))
}

func (m *Metrics) RecordMemberRemoved(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.membersRemoved.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("role", role))...))
}

func (m *Metrics) RecordOwnerGuard(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ownerGuardTrips.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("operation", operation))...))
}

func (m *Metrics) RecordNotificationFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)...))
}

// RecordFieldRecord counts property and service-visit writes. kind is one of
// property, unit, visit, water_test, chemical, maintenance.
func (m *Metrics) RecordFieldRecord(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.fieldRecords.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"role":      {},
	"from_role": {},
	"reason":    {},
	"operation": {},
	"kind":      {},
	"endpoint":  {},
	"action":    {},
	"status":    {},
	"job":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

func (m *Metrics) RecordAuthorizationDenied(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.authzDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("action", action))...))
}

func (m *Metrics) RecordHousekeepingPurged(ctx context.Context, job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.housekeepingPurged.Add(ctx, int64(count), metric.WithAttributes(FilterAttributes(attribute.String("job", job))...))
}

func (m *Metrics) RecordJobError(ctx context.Context, job, reason string) {
	if m == nil {
		return
	}
	m.jobErrors.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("job", job),
		attribute.String("reason", reason),
	)...))
}
