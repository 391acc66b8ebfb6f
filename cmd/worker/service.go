package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type consumerRunner interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Consumers    map[string]consumerRunner
}

// Service runs one notification consumer per subscription until the context ends.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]consumerRunner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run starts every consumer. When one stops with an error the others are canceled and all
// failures are returned together.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for name, consumer := range s.consumers {
		wg.Add(1)
		go func(name string, consumer consumerRunner) {
			defer wg.Done()
			consumerCtx := s.logg.WithField(runCtx, "subscription", name)
			s.logg.Info(consumerCtx, "consumer starting")
			err := consumer.Run(consumerCtx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			s.logg.Error(consumerCtx, "consumer stopped unexpectedly", err)
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
			cancel()
		}(name, consumer)
	}
	wg.Wait()

	if errs != nil {
		return errs
	}
	return ctx.Err()
}
