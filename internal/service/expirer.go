package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 5 * time.Minute
	sweepTimeout         = 30 * time.Second
)

// ExpirerService ends dialogues that have been idle longer than the TTL.
type ExpirerService struct {
	dialogues *DialogueService
	ttl       time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewExpirerService(dialogues *DialogueService, ttl time.Duration, logger *zap.Logger) *ExpirerService {
	return &ExpirerService{
		dialogues: dialogues,
		ttl:       ttl,
		interval:  defaultSweepInterval,
		now:       time.Now,
		logger:    logger,
	}
}

// SetInterval changes the sweep period. Call before Start.
func (s *ExpirerService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start sweeps on every tick until Stop is called.
func (s *ExpirerService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("dialogue expirer started",
			zap.Duration("interval", s.interval),
			zap.Duration("ttl", s.ttl))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("dialogue expirer stopped")
				return
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, sweepTimeout)
				s.Sweep(sweepCtx)
				cancelSweep()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (s *ExpirerService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep ends every dialogue idle since before now minus the TTL and returns
// how many were ended.
func (s *ExpirerService) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	ended, err := s.dialogues.ExpireIdle(ctx, cutoff)
	if err != nil {
		s.logger.Error("dialogue sweep failed", zap.Error(err), zap.Time("cutoff", cutoff))
		return 0
	}
	if ended > 0 {
		s.logger.Info("ended idle dialogues", zap.Int("count", ended), zap.Time("cutoff", cutoff))
	}
	return ended
}
