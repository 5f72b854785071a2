package testutil

import (
	"time"

	"rewardledger/models"

	"github.com/google/uuid"
)

// CreateTestEntry builds a completed ledger entry for accountID
func CreateTestEntry(accountID string, kind models.EntryKind, field models.CurrencyField, amount, balanceAfter int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          kind,
		CurrencyField: field,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		Status:        models.EntryStatusCompleted,
		CorrelationID: uuid.New(),
		Description:   "test entry",
		Metadata:      map[string]any{"test": true},
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateActiveSubscription builds an active subscription ending at end
func CreateActiveSubscription(accountID string, level int, end time.Time) *models.VipSubscription {
	start := end.Add(-30 * 24 * time.Hour)
	return &models.VipSubscription{
		AccountID:         accountID,
		Level:             level,
		Status:            models.VipStateActive,
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
		AutoRenew:         true,
	}
}

// CreateTestAccrual builds an accrual row for day
func CreateTestAccrual(accountID string, day time.Time, claimed int, coins int64) *models.ActivityAccrual {
	a := models.NewActivityAccrual(accountID, day)
	a.RewardsGrantedToday = claimed
	a.RewardsClaimedToday = claimed
	a.CoinsEarnedToday = coins
	a.FirstClaimOfDay = claimed == 0
	return a
}
