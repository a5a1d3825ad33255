// Package sweeper runs the periodic maintenance loop: expiring stale
// pending holds and completing stays whose checkout has passed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service is the maintenance surface of the booking coordinator.
type Service interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
	CompleteElapsedStays(ctx context.Context) (int, error)
}

// Sweeper periodically invokes the maintenance sweeps.
type Sweeper struct {
	svc      Service
	interval time.Duration
	logger   *zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a sweeper with the given interval.
func New(svc Service, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop. It returns when the context is cancelled
// or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// Sweep runs one maintenance pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.svc.ExpireStaleHolds(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expire stale holds failed")
	} else if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("stale holds expired")
	}

	completed, err := s.svc.CompleteElapsedStays(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("complete elapsed stays failed")
	} else if completed > 0 {
		s.logger.Info().Int("completed", completed).Msg("elapsed stays completed")
	}
}
