package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dbelyakov/realvista/internal/services"
	"github.com/dbelyakov/realvista/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSchedule      = "@daily"
)

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetentionDays adjusts how long audit logs are retained before cleanup.
func WithRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSchedule overrides the cron specification for the audit sweep.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// Cleaner prunes aged audit log entries on a schedule. It deliberately never
// touches lockout state: expired locks stay in storage and are evaluated
// lazily at login.
type Cleaner struct {
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int
	schedule  string
}

// NewCleaner builds a Cleaner with defaults applied.
func NewCleaner(audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:     audit,
		cron:      cron.New(),
		now:       time.Now,
		log:       logger.WithModule("maintenance"),
		retention: defaultAuditRetentionDays,
		schedule:  defaultAuditSchedule,
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	return cleaner
}

// Start registers the scheduled jobs and launches the cron loop.
func (c *Cleaner) Start() error {
	if c.audit == nil {
		return errors.New("maintenance: audit service is required")
	}

	_, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("audit cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: schedule audit cleanup: %w", err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the cron loop and returns a context that completes once any
// in-flight job finishes.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce performs a single cleanup pass.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	cutoff := c.now().AddDate(0, 0, -c.retention)
	removed, err := c.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if removed > 0 {
		c.log.Info("pruned audit entries",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}

	return errs
}
