// Package jobs runs the scheduled maintenance of the local cache.
package jobs

import (
	"context"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobVerifyLedger = "verify_ledger"

// Verifier re-fetches the history into the cache and checks it against the
// confirmed total. The credits syncer satisfies it.
type Verifier interface {
	VerifyLedger(ctx context.Context, limit int) (bool, error)
}

// Scheduler runs the ledger verification on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	verifier Verifier
	schedule string
	limit    int
	timeout  time.Duration
}

func NewScheduler(verifier Verifier, schedule string, limit int) *Scheduler {
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		verifier: verifier,
		schedule: schedule,
		limit:    limit,
		timeout:  2 * time.Minute,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		_ = s.RunVerification(ctx)
	}); err != nil {
		return fmt.Errorf("invalid verification schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	zap.L().Info("Job scheduler started", zap.String("verify_schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("Job scheduler stopped")
}

// RunVerification refreshes the cached history and verifies it once
func (s *Scheduler) RunVerification(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ok, err := s.verifier.VerifyLedger(ctx, s.limit)
	switch {
	case err != nil:
		metrics.JobRuns.WithLabelValues(jobVerifyLedger, metrics.OutcomeFailure).Inc()
		zap.L().Error("Ledger verification failed", zap.Error(err))
		return err
	case !ok:
		metrics.JobRuns.WithLabelValues(jobVerifyLedger, metrics.OutcomeSkipped).Inc()
		zap.L().Info("Ledger history longer than limit, verification skipped", zap.Int("limit", s.limit))
		return nil
	}

	metrics.JobRuns.WithLabelValues(jobVerifyLedger, metrics.OutcomeSuccess).Inc()
	zap.L().Debug("Ledger verified", zap.Duration("elapsed", time.Since(start)))
	return nil
}
