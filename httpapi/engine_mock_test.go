package httpapi

import (
	"context"

	"rewardledger/models"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a testify mock of Engine
type MockEngine struct {
	mock.Mock
}

func ptr[T any](args mock.Arguments, i int) *T {
	if v := args.Get(i); v != nil {
		return v.(*T)
	}
	return nil
}

func (m *MockEngine) OpenAccount(ctx context.Context, accountID, timezone string) (*models.Wallet, error) {
	args := m.Called(ctx, accountID, timezone)
	return ptr[models.Wallet](args, 0), args.Error(1)
}

func (m *MockEngine) GetWallet(ctx context.Context, accountID string) (*models.Wallet, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.Wallet](args, 0), args.Error(1)
}

func (m *MockEngine) Deposit(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	args := m.Called(ctx, accountID, amount)
	return ptr[models.TransactionResult](args, 0), args.Error(1)
}

func (m *MockEngine) Withdraw(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	args := m.Called(ctx, accountID, amount)
	return ptr[models.TransactionResult](args, 0), args.Error(1)
}

func (m *MockEngine) Transfer(ctx context.Context, accountID string, from, to models.CurrencyField, amount int64) (*models.TransactionResult, error) {
	args := m.Called(ctx, accountID, from, to, amount)
	return ptr[models.TransactionResult](args, 0), args.Error(1)
}

func (m *MockEngine) TransferToAccount(ctx context.Context, fromID, toID string, amount int64) (*models.TransferResult, error) {
	args := m.Called(ctx, fromID, toID, amount)
	return ptr[models.TransferResult](args, 0), args.Error(1)
}

func (m *MockEngine) ConvertStars(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	args := m.Called(ctx, accountID, amount)
	return ptr[models.TransactionResult](args, 0), args.Error(1)
}

func (m *MockEngine) GetTransactions(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.LedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.Reconciliation](args, 0), args.Error(1)
}

func (m *MockEngine) GetVipLevels() models.VipLevelTable {
	args := m.Called()
	return args.Get(0).(models.VipLevelTable)
}

func (m *MockEngine) GetVipStatus(ctx context.Context, accountID string) (*models.VipStatus, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.VipStatus](args, 0), args.Error(1)
}

func (m *MockEngine) Subscribe(ctx context.Context, accountID string, level int) (*models.VipStatus, error) {
	args := m.Called(ctx, accountID, level)
	return ptr[models.VipStatus](args, 0), args.Error(1)
}

func (m *MockEngine) ToggleAutoRenew(ctx context.Context, accountID string) (*models.VipStatus, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.VipStatus](args, 0), args.Error(1)
}

func (m *MockEngine) CancelVip(ctx context.Context, accountID string) (*models.VipStatus, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.VipStatus](args, 0), args.Error(1)
}

func (m *MockEngine) TrackActivity(ctx context.Context, accountID string) (*models.ActivityProgress, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.ActivityProgress](args, 0), args.Error(1)
}

func (m *MockEngine) ClaimReward(ctx context.Context, accountID string) (*models.ClaimResult, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.ClaimResult](args, 0), args.Error(1)
}

func (m *MockEngine) GetActivityStatus(ctx context.Context, accountID string) (*models.ActivityStatus, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.ActivityStatus](args, 0), args.Error(1)
}

func (m *MockEngine) GetDailySummary(ctx context.Context, accountID string) (*models.DailySummary, error) {
	args := m.Called(ctx, accountID)
	return ptr[models.DailySummary](args, 0), args.Error(1)
}

func (m *MockEngine) GetCharityStats(ctx context.Context) (*models.CharityStats, error) {
	args := m.Called(ctx)
	return ptr[models.CharityStats](args, 0), args.Error(1)
}
