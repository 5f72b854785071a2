package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rewardledger/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper runs one renewal pass
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

// SweepRecorder receives the outcome of every pass
type SweepRecorder interface {
	RecordSweep(report *service.SweepReport)
}

// RenewalWorker drives the VIP renewal sweep on a cron schedule
type RenewalWorker struct {
	sweeper  Sweeper
	recorder SweepRecorder
	schedule string
	timeout  time.Duration
}

// NewRenewalWorker creates a renewal worker. recorder may be nil.
func NewRenewalWorker(sweeper Sweeper, recorder SweepRecorder, schedule string) *RenewalWorker {
	return &RenewalWorker{
		sweeper:  sweeper,
		recorder: recorder,
		schedule: schedule,
		timeout:  2 * time.Minute,
	}
}

// Start schedules the sweep and runs one pass immediately. The returned
// function stops the schedule and waits for any running pass, the initial
// one included, to finish.
func (w *RenewalWorker) Start(ctx context.Context) (func(), error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid renewal schedule %q: %w", w.schedule, err)
	}

	c.Start()
	log.WithField("schedule", w.schedule).Info("Renewal worker started")

	var initial sync.WaitGroup
	initial.Add(1)
	go func() {
		defer initial.Done()
		w.RunOnce(ctx)
	}()

	return func() {
		<-c.Stop().Done()
		initial.Wait()
		log.Info("Renewal worker stopped")
	}, nil
}

// RunOnce performs a single sweep and reports it
func (w *RenewalWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	sweepCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	report, err := w.sweeper.Sweep(sweepCtx)
	if err != nil {
		log.WithError(err).Error("Renewal sweep failed")
		return
	}

	if w.recorder != nil {
		w.recorder.RecordSweep(report)
	}

	if report.Due == 0 {
		log.Debug("No VIP subscriptions due for renewal")
		return
	}
	log.WithFields(log.Fields{
		"due":     report.Due,
		"renewed": report.Renewed,
		"expired": report.Expired,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Completed renewal sweep")
}
