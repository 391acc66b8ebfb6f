package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type purgeRecorder struct {
	cutoffs []time.Time
	rows    int64
	err     error
}

func (p *purgeRecorder) DeleteReadBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	return p.record(cutoff)
}

func (p *purgeRecorder) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	return p.record(cutoff)
}

func (p *purgeRecorder) record(cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.err != nil {
		return 0, p.err
	}
	return p.rows, nil
}

func retentionParams(days int) RetentionParams {
	return RetentionParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		DB:        passthroughTx{},
		Retention: days,
	}
}

func TestRetentionJobsComputeCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		build  func(RetentionParams, *purgeRecorder) (Job, error)
		days   int
		cutoff time.Time
	}{
		{
			name:   "notification-cleanup",
			build:  func(p RetentionParams, r *purgeRecorder) (Job, error) { return NewNotificationCleanupJob(p, r) },
			cutoff: now.AddDate(0, 0, -notificationRetentionDays),
		},
		{
			name:   "notification-cleanup",
			build:  func(p RetentionParams, r *purgeRecorder) (Job, error) { return NewNotificationCleanupJob(p, r) },
			days:   7,
			cutoff: time.Date(2026, 3, 24, 8, 0, 0, 0, time.UTC),
		},
		{
			name:   "outbox-retention",
			build:  func(p RetentionParams, r *purgeRecorder) (Job, error) { return NewOutboxRetentionJob(p, r) },
			cutoff: time.Date(2026, 3, 17, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		repo := &purgeRecorder{rows: 3}
		job, err := tc.build(retentionParams(tc.days), repo)
		require.NoError(t, err)
		job.(*retentionJob).now = func() time.Time { return now }

		assert.Equal(t, tc.name, job.Name())
		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, []time.Time{tc.cutoff}, repo.cutoffs)
	}
}

func TestRetentionJobWrapsPurgeError(t *testing.T) {
	job, err := NewOutboxRetentionJob(retentionParams(0), &purgeRecorder{err: errors.New("statement timeout")})
	require.NoError(t, err)

	err = job.Run(context.Background())
	assert.ErrorContains(t, err, "statement timeout")
	assert.ErrorContains(t, err, "purge before")
}

func TestRetentionJobsValidateParams(t *testing.T) {
	_, err := NewNotificationCleanupJob(retentionParams(0), nil)
	assert.EqualError(t, err, "notifications repository required")

	_, err = NewOutboxRetentionJob(RetentionParams{DB: passthroughTx{}}, &purgeRecorder{})
	assert.EqualError(t, err, "outbox-retention: logger required")
}
