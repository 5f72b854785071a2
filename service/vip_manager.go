package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewardledger/events"
	"rewardledger/models"

	log "github.com/sirupsen/logrus"
)

// Expiry reasons carried on VipExpiredEvent
const (
	ExpiryReasonAutoRenewDisabled = "auto_renew_disabled"
	ExpiryReasonInsufficientFunds = "insufficient_funds"
)

// VipManager owns the subscription row of one account inside a unit of work.
// Fees are charged through the transaction processor.
type VipManager struct {
	subs      VipSubscriptionRepository
	processor *TransactionProcessor
	publisher EventPublisher
	levels    models.VipLevelTable
	period    time.Duration
	clock     Clock
}

func NewVipManager(uow UnitOfWork, processor *TransactionProcessor, levels models.VipLevelTable, period time.Duration, clock Clock) *VipManager {
	return &VipManager{
		subs:      uow.VipSubscriptionRepository(),
		processor: processor,
		publisher: uow.EventBus(),
		levels:    levels,
		period:    period,
		clock:     clock,
	}
}

// Ensure returns the account's subscription row, creating the level 0 row if missing
func (m *VipManager) Ensure(ctx context.Context, accountID string) (*models.VipSubscription, error) {
	sub, err := m.subs.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vip subscription: %w", err)
	}
	if sub != nil {
		return sub, nil
	}

	if err := m.subs.Create(ctx, models.NewVipSubscription(accountID)); err != nil {
		return nil, fmt.Errorf("failed to create vip subscription: %w", err)
	}
	sub, err = m.subs.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vip subscription: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("vip subscription for %s missing after create", accountID)
	}
	return sub, nil
}

// Status projects the subscription against the level table
func (m *VipManager) Status(ctx context.Context, accountID string) (*models.VipStatus, error) {
	sub, err := m.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return models.BuildVipStatus(sub, m.levels, m.clock.Now()), nil
}

// Recharge grows total_recharged. Eligibility follows from the new total.
func (m *VipManager) Recharge(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	sub, err := m.Ensure(ctx, accountID)
	if err != nil {
		return err
	}
	before := m.levels.EligibleLevel(sub.TotalRecharged)
	sub.Recharge(amount)
	if err := m.subs.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to record recharge: %w", err)
	}

	if after := m.levels.EligibleLevel(sub.TotalRecharged); after > before {
		log.WithFields(log.Fields{
			"accountID":      accountID,
			"totalRecharged": sub.TotalRecharged,
			"eligibleLevel":  after,
		}).Info("VIP eligibility increased")
	}
	return nil
}

// Subscribe charges the level's fee and starts a fresh window
func (m *VipManager) Subscribe(ctx context.Context, accountID string, level int) (*models.VipStatus, error) {
	def, ok := m.levels.Get(level)
	if !ok || level == 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidLevel, level)
	}

	sub, err := m.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()

	eligible := m.levels.EligibleLevel(sub.TotalRecharged)
	if level > eligible {
		return nil, fmt.Errorf("%w: level %d requires %d recharged, have %d",
			models.ErrLevelLocked, level, def.RechargeRequirement, sub.TotalRecharged)
	}
	if sub.IsActive(now) && level < sub.Level {
		return nil, fmt.Errorf("%w: level %d is active", models.ErrLevelDowngrade, sub.Level)
	}

	if _, err := m.processor.DebitForVip(ctx, accountID, def.MonthlyFee, level); err != nil {
		return nil, err
	}

	sub.Activate(level, now, m.period)
	if err := m.subs.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update vip subscription: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":       accountID,
		"level":           level,
		"fee":             def.MonthlyFee,
		"subscriptionEnd": *sub.SubscriptionEnd,
	}).Info("VIP subscription started")

	m.publish(events.VipSubscribedEvent{
		AccountID:       accountID,
		Level:           level,
		Fee:             def.MonthlyFee,
		SubscriptionEnd: *sub.SubscriptionEnd,
	})
	return models.BuildVipStatus(sub, m.levels, now), nil
}

// ToggleAutoRenew flips auto_renew on an active subscription
func (m *VipManager) ToggleAutoRenew(ctx context.Context, accountID string) (*models.VipStatus, error) {
	return m.setAutoRenew(ctx, accountID, func(current bool) bool { return !current })
}

// Cancel turns auto_renew off. Benefits run until the window ends.
func (m *VipManager) Cancel(ctx context.Context, accountID string) (*models.VipStatus, error) {
	return m.setAutoRenew(ctx, accountID, func(bool) bool { return false })
}

func (m *VipManager) setAutoRenew(ctx context.Context, accountID string, next func(bool) bool) (*models.VipStatus, error) {
	sub, err := m.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	if !sub.IsActive(now) {
		return nil, models.ErrNotSubscribed
	}

	value := next(sub.AutoRenew)
	if value != sub.AutoRenew {
		sub.AutoRenew = value
		if err := m.subs.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to update auto renew: %w", err)
		}
		m.publish(events.AutoRenewChangedEvent{AccountID: accountID, AutoRenew: value})
	}
	return models.BuildVipStatus(sub, m.levels, now), nil
}

// Renew processes one due subscription. Funds shortfalls and disabled
// auto-renew expire the window; any other failure is returned untouched so
// the caller can retry.
func (m *VipManager) Renew(ctx context.Context, accountID string) (models.RenewalOutcome, error) {
	sub, err := m.subs.GetByAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to get vip subscription: %w", err)
	}
	now := m.clock.Now()
	if sub == nil || !sub.DueForRenewal(now) {
		return models.RenewalSkipped, nil
	}

	logger := log.WithFields(log.Fields{
		"accountID": accountID,
		"level":     sub.Level,
	})

	if !sub.AutoRenew {
		if err := m.expire(ctx, sub, ExpiryReasonAutoRenewDisabled); err != nil {
			return "", err
		}
		logger.Info("VIP subscription expired without auto renew")
		return models.RenewalExpired, nil
	}

	def, ok := m.levels.Get(sub.Level)
	if !ok {
		return "", fmt.Errorf("%w: subscribed level %d no longer configured", models.ErrInvalidLevel, sub.Level)
	}

	if _, err := m.processor.DebitForVip(ctx, accountID, def.MonthlyFee, sub.Level); err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			if err := m.expire(ctx, sub, ExpiryReasonInsufficientFunds); err != nil {
				return "", err
			}
			logger.WithField("fee", def.MonthlyFee).Info("VIP renewal failed for insufficient funds")
			return models.RenewalExpired, nil
		}
		return "", err
	}

	sub.Extend(m.period, now)
	if err := m.subs.Update(ctx, sub); err != nil {
		return "", fmt.Errorf("failed to extend vip subscription: %w", err)
	}

	logger.WithFields(log.Fields{
		"fee":             def.MonthlyFee,
		"subscriptionEnd": *sub.SubscriptionEnd,
		"renewalCount":    sub.RenewalCount,
	}).Info("VIP subscription renewed")

	m.publish(events.VipRenewedEvent{
		AccountID:       accountID,
		Level:           sub.Level,
		Fee:             def.MonthlyFee,
		SubscriptionEnd: *sub.SubscriptionEnd,
		RenewalCount:    sub.RenewalCount,
	})
	return models.RenewalRenewed, nil
}

func (m *VipManager) expire(ctx context.Context, sub *models.VipSubscription, reason string) error {
	sub.Expire()
	if err := m.subs.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to expire vip subscription: %w", err)
	}
	m.publish(events.VipExpiredEvent{AccountID: sub.AccountID, Level: sub.Level, Reason: reason})
	return nil
}

func (m *VipManager) publish(event events.Event) {
	if err := m.publisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish event")
	}
}
