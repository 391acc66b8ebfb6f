package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	notificationRetentionDays = 90
	outboxRetentionDays       = 14
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetentionParams are shared by the pruning jobs. Retention is in days; zero keeps
// the job's default.
type RetentionParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Retention int
}

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type publishedEventPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob prunes notifications read before the retention window.
// Unread notifications are never removed.
func NewNotificationCleanupJob(params RetentionParams, repo readNotificationPurger) (Job, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", notificationRetentionDays, params,
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeleteReadBefore(ctx, tx, cutoff)
		})
}

// NewOutboxRetentionJob prunes outbox rows published before the retention window.
// Pending and dead rows stay for the publisher and for inspection.
func NewOutboxRetentionJob(params RetentionParams, repo publishedEventPurger) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	return newRetentionJob("outbox-retention", outboxRetentionDays, params,
		func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(tx, cutoff)
		})
}

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes everything its purge func selects older than days.
type retentionJob struct {
	name  string
	days  int
	purge purgeFunc
	logg  *logger.Logger
	db    txRunner
	now   func() time.Time
}

func newRetentionJob(name string, defaultDays int, params RetentionParams, purge purgeFunc) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("%s: logger required", name)
	}
	if params.DB == nil {
		return nil, fmt.Errorf("%s: db runner required", name)
	}
	days := params.Retention
	if days <= 0 {
		days = defaultDays
	}
	return &retentionJob{
		name:  name,
		days:  days,
		purge: purge,
		logg:  params.Logger,
		db:    params.DB,
		now:   time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		deleted, err = j.purge(ctx, tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("purge before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff.Format(time.RFC3339),
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention pass complete")
	return nil
}
