package service

import (
	"context"
	"fmt"
	"time"

	"rewardledger/events"
	"rewardledger/models"

	log "github.com/sirupsen/logrus"
)

// SummaryDays is the window covered by the daily summary
const SummaryDays = 7

// ActivityTracker owns the per-day activity rows of one account inside a
// unit of work. Reward credits go through the transaction processor.
type ActivityTracker struct {
	accruals  ActivityAccrualRepository
	processor *TransactionProcessor
	publisher EventPublisher
	cfg       models.RewardConfig
	clock     Clock
}

func NewActivityTracker(uow UnitOfWork, processor *TransactionProcessor, cfg models.RewardConfig, clock Clock) *ActivityTracker {
	return &ActivityTracker{
		accruals:  uow.ActivityAccrualRepository(),
		processor: processor,
		publisher: uow.EventBus(),
		cfg:       cfg,
		clock:     clock,
	}
}

// today loads the row for the account's current local day, rolling over
// a stale row when the day has advanced.
func (t *ActivityTracker) today(ctx context.Context, wallet *models.Wallet, now time.Time) (*models.ActivityAccrual, bool, error) {
	latest, err := t.accruals.GetLatest(ctx, wallet.AccountID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get activity accrual: %w", err)
	}
	day := models.DayOf(now, wallet.Location())
	accrual := models.RollOver(latest, wallet.AccountID, day)
	return accrual, accrual != latest, nil
}

// Tick registers a heartbeat. Ticks closer together than the minimum
// spacing are acknowledged but not counted.
func (t *ActivityTracker) Tick(ctx context.Context, wallet *models.Wallet) (*models.ActivityProgress, error) {
	now := t.clock.Now()
	accrual, fresh, err := t.today(ctx, wallet, now)
	if err != nil {
		return nil, err
	}

	result := accrual.Tick(now, t.cfg)
	if result.Counted || fresh {
		if err := t.accruals.Save(ctx, accrual); err != nil {
			return nil, fmt.Errorf("failed to save activity accrual: %w", err)
		}
	}

	if result.Granted {
		log.WithFields(log.Fields{
			"accountID":        wallet.AccountID,
			"rewardsAvailable": accrual.RewardsAvailable,
			"grantedToday":     accrual.RewardsGrantedToday,
		}).Info("Activity reward became available")
	}

	t.publish(events.ActivityTickEvent{
		AccountID: wallet.AccountID,
		Counted:   result.Counted,
		Granted:   result.Granted,
	})

	return &models.ActivityProgress{
		ProgressPercent:          accrual.ProgressPercent(t.cfg),
		RewardsAvailable:         accrual.RewardsAvailable,
		MinutesTowardsNextReward: accrual.MinutesTowardsNextReward,
		Counted:                  result.Counted,
	}, nil
}

// Claim consumes one available reward and credits it
func (t *ActivityTracker) Claim(ctx context.Context, wallet *models.Wallet) (*models.ClaimResult, error) {
	now := t.clock.Now()
	accrual, _, err := t.today(ctx, wallet, now)
	if err != nil {
		return nil, err
	}

	claim, err := accrual.Claim(t.cfg)
	if err != nil {
		return nil, err
	}

	if _, err := t.processor.CreditReward(ctx, wallet.AccountID, claim.RewardAmount, t.cfg.RewardCurrency, map[string]any{
		"day":                  accrual.Day.Format(time.DateOnly),
		"daily_bonus_included": claim.DailyBonusIncluded,
	}); err != nil {
		return nil, fmt.Errorf("failed to credit activity reward: %w", err)
	}

	if err := t.accruals.Save(ctx, accrual); err != nil {
		return nil, fmt.Errorf("failed to save activity accrual: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":    wallet.AccountID,
		"rewardAmount": claim.RewardAmount,
		"dailyBonus":   claim.DailyBonusIncluded,
		"claimedToday": accrual.RewardsClaimedToday,
	}).Info("Activity reward claimed")

	t.publish(events.RewardClaimedEvent{
		AccountID:          wallet.AccountID,
		Day:                accrual.Day.Format(time.DateOnly),
		RewardAmount:       claim.RewardAmount,
		DailyBonusIncluded: claim.DailyBonusIncluded,
		ClaimedToday:       accrual.RewardsClaimedToday,
	})
	return &claim, nil
}

// Status is the read-only view of today's accrual
func (t *ActivityTracker) Status(ctx context.Context, wallet *models.Wallet) (*models.ActivityStatus, error) {
	accrual, _, err := t.today(ctx, wallet, t.clock.Now())
	if err != nil {
		return nil, err
	}
	return models.BuildActivityStatus(accrual, t.cfg), nil
}

// Summary covers the last SummaryDays local days
func (t *ActivityTracker) Summary(ctx context.Context, wallet *models.Wallet) (*models.DailySummary, error) {
	today := models.DayOf(t.clock.Now(), wallet.Location())
	rows, err := t.accruals.ListSince(ctx, wallet.AccountID, today.AddDate(0, 0, -(SummaryDays-1)))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity accruals: %w", err)
	}
	return models.BuildDailySummary(rows, today, SummaryDays), nil
}

func (t *ActivityTracker) publish(event events.Event) {
	if err := t.publisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish event")
	}
}
