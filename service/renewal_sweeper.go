package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rewardledger/models"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RenewalEngine is the part of the engine the sweep drives
type RenewalEngine interface {
	DueRenewals(ctx context.Context, limit int) ([]string, error)
	RenewSubscription(ctx context.Context, accountID string) (models.RenewalOutcome, error)
	DeferRenewal(ctx context.Context, accountID string, cooldown time.Duration) error
}

// SweepConfig bounds one sweep pass
type SweepConfig struct {
	BatchSize      int
	Concurrency    int
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// FailureCooldown keeps an account whose renewal failed permanently off
	// the due list for this long
	FailureCooldown time.Duration
}

// SweepReport counts what one pass did
type SweepReport struct {
	Due     int `json:"due"`
	Renewed int `json:"renewed"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RenewalSweeper renews or expires every due subscription. Each account is
// its own unit of work; one account's failure never stops the others.
type RenewalSweeper struct {
	engine RenewalEngine
	cfg    SweepConfig
}

func NewRenewalSweeper(engine RenewalEngine, cfg SweepConfig) *RenewalSweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.FailureCooldown <= 0 {
		cfg.FailureCooldown = time.Hour
	}
	return &RenewalSweeper{engine: engine, cfg: cfg}
}

// Sweep runs one pass over at most BatchSize due accounts. Accounts left
// over are picked up by the next pass.
func (s *RenewalSweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	start := time.Now()

	due, err := s.engine.DueRenewals(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due renewals: %w", err)
	}

	report := &SweepReport{Due: len(due)}
	var mu sync.Mutex

	// errgroup only bounds parallelism here; workers never return an error
	// so a failing account cannot cancel the rest.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, accountID := range due {
		g.Go(func() error {
			outcome, err := s.renewWithRetry(gctx, accountID)
			if err != nil && !models.IsRetryable(err) {
				s.deferFailed(gctx, accountID)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				log.WithError(err).WithField("accountID", accountID).Error("VIP renewal failed")
				return nil
			}
			switch outcome {
			case models.RenewalRenewed:
				report.Renewed++
			case models.RenewalExpired:
				report.Expired++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.WithFields(log.Fields{
		"due":      report.Due,
		"renewed":  report.Renewed,
		"expired":  report.Expired,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"duration": time.Since(start),
	}).Info("Completed VIP renewal sweep")

	return report, nil
}

// renewWithRetry retries transient store failures with exponential backoff.
// Business outcomes are final.
func (s *RenewalSweeper) renewWithRetry(ctx context.Context, accountID string) (models.RenewalOutcome, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialBackoff
	policy.MaxInterval = s.cfg.MaxBackoff

	var outcome models.RenewalOutcome
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		outcome, err = s.engine.RenewSubscription(ctx, accountID)
		if err == nil {
			return nil
		}
		if !models.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		log.WithFields(log.Fields{
			"accountID": accountID,
			"attempt":   attempt,
		}).WithError(err).Warn("Retrying VIP renewal")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", err
	}
	return outcome, nil
}

// deferFailed parks an account whose renewal cannot succeed as is, so it does
// not hold the head of every later batch
func (s *RenewalSweeper) deferFailed(ctx context.Context, accountID string) {
	if err := s.engine.DeferRenewal(ctx, accountID, s.cfg.FailureCooldown); err != nil {
		log.WithError(err).WithField("accountID", accountID).Warn("Failed to defer VIP renewal")
		return
	}
	log.WithFields(log.Fields{
		"accountID": accountID,
		"cooldown":  s.cfg.FailureCooldown,
	}).Info("Deferred failing VIP renewal")
}
