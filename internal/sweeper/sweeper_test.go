package sweeper

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubService struct {
	expireCalls   atomic.Int64
	completeCalls atomic.Int64
	expireErr     error
}

func (s *stubService) ExpireStaleHolds(context.Context) (int, error) {
	s.expireCalls.Add(1)
	if s.expireErr != nil {
		return 0, s.expireErr
	}
	return 2, nil
}

func (s *stubService) CompleteElapsedStays(context.Context) (int, error) {
	s.completeCalls.Add(1)
	return 1, nil
}

func TestSweepRunsBothPasses(t *testing.T) {
	svc := &stubService{}
	logger := zerolog.New(io.Discard)
	s := New(svc, time.Minute, &logger)

	s.Sweep(context.Background())

	assert.Equal(t, int64(1), svc.expireCalls.Load())
	assert.Equal(t, int64(1), svc.completeCalls.Load())
}

func TestSweepContinuesPastExpireFailure(t *testing.T) {
	svc := &stubService{expireErr: errors.New("db locked")}
	logger := zerolog.New(io.Discard)
	s := New(svc, time.Minute, &logger)

	s.Sweep(context.Background())

	assert.Equal(t, int64(1), svc.completeCalls.Load())
}

func TestStartStop(t *testing.T) {
	svc := &stubService{}
	logger := zerolog.New(io.Discard)
	s := New(svc, 10*time.Millisecond, &logger)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return svc.expireCalls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	// A second Stop is a harmless no-op.
	s.Stop()
}

func TestStartHonorsContext(t *testing.T) {
	svc := &stubService{}
	logger := zerolog.New(io.Discard)
	s := New(svc, time.Hour, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
