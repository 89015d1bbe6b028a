package scheduler

import (
	"strings"
	"time"

	"github.com/aquivis/aquivis/internal/config"
)

// Config controls housekeeping intervals, retention and batch sizes.
type Config struct {
	RunInterval         time.Duration
	JobTimeout          time.Duration
	BatchSize           int
	SessionRetention    time.Duration
	InvitationRetention time.Duration
	EnabledJobs         []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         15 * time.Minute,
		JobTimeout:          time.Minute,
		BatchSize:           500,
		SessionRetention:    7 * 24 * time.Hour,
		InvitationRetention: 30 * 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:         cfg.Scheduler.RunInterval,
		SessionRetention:    cfg.Scheduler.SessionRetention,
		InvitationRetention: cfg.Scheduler.InvitationRetention,
		EnabledJobs:         splitJobs(cfg.Scheduler.EnabledJobs),
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.SessionRetention <= 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	if c.InvitationRetention <= 0 {
		c.InvitationRetention = defaults.InvitationRetention
	}
	return c
}

func splitJobs(raw string) []string {
	var jobs []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			jobs = append(jobs, name)
		}
	}
	return jobs
}
