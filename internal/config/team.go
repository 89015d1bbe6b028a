package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TeamPolicy carries the operator-tunable knobs of the invitation workflow.
type TeamPolicy struct {
	InviteTTLHours  int             `mapstructure:"inviteTTLHours"`
	InviteRateLimit InviteRateLimit `mapstructure:"inviteRateLimit"`
}

// InviteRateLimit is the per-company budget for outbound invitation emails.
type InviteRateLimit struct {
	PerHour int `mapstructure:"perHour"`
	Burst   int `mapstructure:"burst"`
}

func DefaultTeamPolicy() TeamPolicy {
	return TeamPolicy{
		InviteTTLHours: 7 * 24,
		InviteRateLimit: InviteRateLimit{
			PerHour: 50,
			Burst:   10,
		},
	}
}

func (p TeamPolicy) InviteTTL() time.Duration {
	return time.Duration(p.InviteTTLHours) * time.Hour
}

type TeamPolicyHolder struct {
	current atomic.Value // holds TeamPolicy
}

// NewStaticTeamPolicyHolder returns a holder that never reloads.
func NewStaticTeamPolicyHolder(policy TeamPolicy) *TeamPolicyHolder {
	holder := &TeamPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewTeamPolicyHolder(log *zap.Logger) (*TeamPolicyHolder, error) {
	log = log.Named("config.team")
	v := viper.New()

	v.SetConfigName("team")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/aquivis/config")
	v.AddConfigPath("/etc/aquivis")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AQUIVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTeamPolicy()
	v.SetDefault("team.inviteTTLHours", defaults.InviteTTLHours)
	v.SetDefault("team.inviteRateLimit.perHour", defaults.InviteRateLimit.PerHour)
	v.SetDefault("team.inviteRateLimit.burst", defaults.InviteRateLimit.Burst)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var policy TeamPolicy
	if err := v.UnmarshalKey("team", &policy); err != nil {
		return nil, err
	}
	if err := validateTeamPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticTeamPolicyHolder(policy)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated TeamPolicy
			if err := v.UnmarshalKey("team", &updated); err != nil {
				log.Warn("team policy reload failed", zap.Error(err))
				return
			}
			if err := validateTeamPolicy(updated); err != nil {
				log.Warn("invalid team policy ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("team policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *TeamPolicyHolder) Get() TeamPolicy {
	return h.current.Load().(TeamPolicy)
}

func validateTeamPolicy(p TeamPolicy) error {
	if p.InviteTTLHours <= 0 {
		return errors.New("team.inviteTTLHours must be positive")
	}
	if p.InviteRateLimit.PerHour < 0 || p.InviteRateLimit.Burst < 0 {
		return errors.New("team.inviteRateLimit values cannot be negative")
	}
	return nil
}
