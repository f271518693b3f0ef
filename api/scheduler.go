/*
scheduler.go - Automated reconciliation sweep scheduler

PURPOSE:
  Runs the reconciliation sweep on application start and then on a cron
  schedule. The sweep is idempotent, so an extra run is always safe.

CONFIGURATION:
  The schedule is a cron expression (robfig/cron), e.g. "@hourly" or
  "0 6 * * *". An empty schedule disables the timer; the startup run
  still happens.

USAGE:
  scheduler := NewSweepScheduler(service, "@hourly", log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/sweep.go: the sweep itself
  - handlers.go: RunSweep endpoint (manual trigger)
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ijara/rent-engine/ledger"
)

// SweepScheduler triggers reconciliation sweeps on a schedule.
type SweepScheduler struct {
	service  *ledger.Service
	schedule string
	log      *logrus.Logger
	cron     *cron.Cron
}

// NewSweepScheduler creates a scheduler; it does nothing until Start.
func NewSweepScheduler(service *ledger.Service, schedule string, log *logrus.Logger) *SweepScheduler {
	return &SweepScheduler{
		service:  service,
		schedule: schedule,
		log:      log,
	}
}

// Start runs one sweep immediately, then installs the cron entry.
func (ss *SweepScheduler) Start() {
	ss.runOnce()

	if ss.schedule == "" {
		ss.log.Info("sweep scheduler disabled, startup sweep only")
		return
	}

	ss.cron = cron.New()
	if _, err := ss.cron.AddFunc(ss.schedule, ss.runOnce); err != nil {
		ss.log.WithError(err).WithField("schedule", ss.schedule).
			Error("invalid sweep schedule, timer not installed")
		ss.cron = nil
		return
	}
	ss.cron.Start()
	ss.log.WithField("schedule", ss.schedule).Info("sweep scheduler started")
}

// Stop halts the cron timer and waits for a running sweep to finish.
func (ss *SweepScheduler) Stop() {
	if ss.cron == nil {
		return
	}
	ctx := ss.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		ss.log.Warn("timed out waiting for running sweep")
	}
	ss.log.Info("sweep scheduler stopped")
}

func (ss *SweepScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := ss.service.RunReconciliationSweep(ctx); err != nil {
		ss.log.WithError(err).Error("scheduled sweep failed")
	}
}
