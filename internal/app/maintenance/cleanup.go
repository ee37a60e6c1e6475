package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

const (
	defaultSchedule                  = "@daily"
	defaultAuditRetentionDays        = 90
	defaultNotificationRetentionDays = 30
)

// ExpiredPurger drops expired cache entries.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance. Token rows are never purged
// here; they only go away with their owning user or team.
type Cleaner struct {
	db            *gorm.DB
	notifications *services.NotificationService
	audit         *services.AuditService
	cache         ExpiredPurger
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger

	schedule              string
	auditRetention        int
	notificationRetention int
}

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

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification of the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are retained.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithNotifications enables the read notification purge.
func WithNotifications(svc *services.NotificationService) Option {
	return func(cleaner *Cleaner) {
		cleaner.notifications = svc
	}
}

// WithAudit enables audit log retention.
func WithAudit(svc *services.AuditService) Option {
	return func(cleaner *Cleaner) {
		cleaner.audit = svc
	}
}

// WithCache enables the expired cache entry purge.
func WithCache(purger ExpiredPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// NewCleaner constructs a Cleaner. Jobs whose dependency is missing are skipped.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                    db,
		now:                   func() time.Time { return time.Now().UTC() },
		schedule:              defaultSchedule,
		auditRetention:        defaultAuditRetentionDays,
		notificationRetention: defaultNotificationRetentionDays,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup routine and collects their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.notifications != nil {
		purged, err := c.notifications.PurgeRead(ctx, c.notificationRetention)
		errs = multierr.Append(errs, err)
		c.log.Debug("read notifications purged", zap.Int64("count", purged))
	}

	if c.audit != nil {
		pruned, err := c.audit.CleanupOlderThan(ctx, c.auditRetention)
		errs = multierr.Append(errs, err)
		c.log.Debug("audit logs pruned", zap.Int64("count", pruned))
	}

	if c.cache != nil {
		purged, err := c.cache.PurgeExpired(ctx)
		errs = multierr.Append(errs, err)
		c.log.Debug("cache entries purged", zap.Int64("count", purged))
	}

	if c.db != nil {
		errs = multierr.Append(errs, RefreshPendingInvitations(ctx, c.db, c.now()))
	}

	return errs
}

// RefreshPendingInvitations sets the pending invitation gauge from storage.
func RefreshPendingInvitations(ctx context.Context, db *gorm.DB, now time.Time) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.TeamInvitation{}).
		Where("accepted_at IS NULL AND expires_at > ?", now).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count pending invitations: %w", err)
	}
	metrics.PendingInvitations.Set(float64(count))
	return nil
}
