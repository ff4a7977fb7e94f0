// Package scheduler runs the nightly compliance sweep
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the NGO maintenance work run on a schedule
type Sweeper interface {
	RemindExpiring(ctx context.Context, now time.Time) (int, error)
	RefreshAllTrustScores(ctx context.Context) (int, error)
}

// Scheduler triggers the compliance sweep on a cron spec with a seconds field
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// New validates spec and prepares the scheduler. Nothing runs until Start.
func New(spec string, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid compliance schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		spec:    spec,
		timeout: 30 * time.Minute,
		logger:  logger,
		ctx:     context.Background(),
	}, nil
}

// Start registers the sweep and starts the cron loop. Jobs see ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("register compliance sweep: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", zap.String("compliance_spec", s.spec))
	return nil
}

// Stop waits for a sweep in progress to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Scheduler stopped")
}

// RunOnce performs one sweep: expiry reminders first, then trust scores
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	reminded, err := s.sweeper.RemindExpiring(ctx, started)
	if err != nil {
		s.logger.Error("Compliance reminder sweep failed", zap.Error(err))
	}

	refreshed, err := s.sweeper.RefreshAllTrustScores(ctx)
	if err != nil {
		s.logger.Error("Trust score sweep failed", zap.Error(err))
	}

	s.logger.Info("Compliance sweep completed",
		zap.Int("reminders_sent", reminded),
		zap.Int("trust_scores_refreshed", refreshed),
		zap.Duration("took", time.Since(started)),
	)
}
