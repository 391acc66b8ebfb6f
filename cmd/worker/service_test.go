package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type consumerFunc func(ctx context.Context) error

func (f consumerFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestServiceStopsAllConsumersWhenOneFails(t *testing.T) {
	stopped := make(chan struct{})
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]consumerRunner{
			"orders": consumerFunc(func(context.Context) error { return errors.New("subscription deleted") }),
			"reviews": consumerFunc(func(ctx context.Context) error {
				<-ctx.Done()
				close(stopped)
				return ctx.Err()
			}),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders: subscription deleted")
	<-stopped
}

func TestServiceReturnsCanceledOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]consumerRunner{
			"orders": consumerFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}),
		},
	})
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestServiceFailsFastOnUnreadyDependency(t *testing.T) {
	ran := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: []dependency{
			{name: "redis", ping: func(context.Context) error { return errors.New("connection refused") }},
		},
		Consumers: map[string]consumerRunner{
			"orders": consumerFunc(func(context.Context) error { ran = true; return nil }),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, ran)
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
}
