package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper closes reconciliations older than maxAge.
type Sweeper interface {
	Sweep(maxAge time.Duration) int
}

// SweepScheduler periodically sweeps abandoned checkout reconciliations.
type SweepScheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweepScheduler schedules target.Sweep(maxAge) with a cron spec such as "@every 1m".
func NewSweepScheduler(target Sweeper, spec string, maxAge time.Duration, logger *zap.Logger) (*SweepScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(spec, func() {
		if n := target.Sweep(maxAge); n > 0 {
			logger.Debug("sweep finished", zap.Int("removed", n))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", spec, err)
	}

	return &SweepScheduler{cron: c, logger: logger}, nil
}

// Start runs the schedule in the background.
func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info("reconciliation sweeper started")
}

// Stop stops the schedule and waits for a running sweep, or for ctx.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
