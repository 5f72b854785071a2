package service

import (
	"testing"
	"time"

	"rewardledger/models"

	"github.com/stretchr/testify/mock"
)

const (
	testAccountID = "acct-1"
	testOtherID   = "acct-2"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// testLevels mirrors the shipped level table
func testLevels() models.VipLevelTable {
	return models.VipLevelTable{
		{Level: 0, Name: "Basic"},
		{Level: 1, Name: "Bronze", RechargeRequirement: 100, MonthlyFee: 50},
		{Level: 2, Name: "Silver", RechargeRequirement: 500, MonthlyFee: 150},
		{Level: 3, Name: "Gold", RechargeRequirement: 2000, MonthlyFee: 400},
	}
}

func testRewards() models.RewardConfig {
	return models.RewardConfig{
		MinutesRequired: 15,
		CoinsPerReward:  200,
		MaxDailyRewards: 6,
		DailyBonus:      50,
		MinTickSpacing:  50 * time.Second,
		RewardCurrency:  models.CurrencyCoins,
	}
}

func testLimits() ProcessorLimits {
	return ProcessorLimits{MinWithdrawal: 100, MaxDeposit: 100000, StarsConversionFeePercent: 8}
}

// TestMocks holds all mock repositories for easy access
type TestMocks struct {
	UoW       *MockUnitOfWork
	Accounts  *MockAccountRepository
	Entries   *MockLedgerEntryRepository
	Charity   *MockCharityPoolRepository
	Vip       *MockVipSubscriptionRepository
	Activity  *MockActivityAccrualRepository
	Publisher *MockEventPublisher
}

func NewTestMocks() *TestMocks {
	m := &TestMocks{
		UoW:       new(MockUnitOfWork),
		Accounts:  new(MockAccountRepository),
		Entries:   new(MockLedgerEntryRepository),
		Charity:   new(MockCharityPoolRepository),
		Vip:       new(MockVipSubscriptionRepository),
		Activity:  new(MockActivityAccrualRepository),
		Publisher: new(MockEventPublisher),
	}
	m.UoW.SetRepositories(m.Accounts, m.Entries, m.Charity, m.Vip, m.Activity, m.Publisher)
	return m
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.UoW.AssertExpectations(t)
	m.Accounts.AssertExpectations(t)
	m.Entries.AssertExpectations(t)
	m.Charity.AssertExpectations(t)
	m.Vip.AssertExpectations(t)
	m.Activity.AssertExpectations(t)
}

// Processor builds the component chain on top of the mocks
func (m *TestMocks) Processor(clock Clock) *TransactionProcessor {
	return NewTransactionProcessor(NewLedgerStore(m.UoW, 200, clock), testLimits())
}

// ExpectAppend accepts any ledger entry of kind
func (m *TestMocks) ExpectAppend(kind models.EntryKind) *mock.Call {
	return m.Entries.On("Append", mock.Anything, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.Kind == kind
	})).Return(nil)
}

func walletWith(coins, withdrawable, stars int64) *models.Wallet {
	return &models.Wallet{
		AccountID:           testAccountID,
		Timezone:            "UTC",
		CoinsBalance:        coins,
		StarsBalance:        stars,
		WithdrawableBalance: withdrawable,
	}
}
