package httpapi

import (
	"context"

	"rewardledger/models"
)

// Engine is the set of engine operations the HTTP binding exposes
type Engine interface {
	OpenAccount(ctx context.Context, accountID, timezone string) (*models.Wallet, error)
	GetWallet(ctx context.Context, accountID string) (*models.Wallet, error)
	Deposit(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error)
	Withdraw(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error)
	Transfer(ctx context.Context, accountID string, from, to models.CurrencyField, amount int64) (*models.TransactionResult, error)
	TransferToAccount(ctx context.Context, fromID, toID string, amount int64) (*models.TransferResult, error)
	ConvertStars(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error)
	GetTransactions(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error)
	Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error)

	GetVipLevels() models.VipLevelTable
	GetVipStatus(ctx context.Context, accountID string) (*models.VipStatus, error)
	Subscribe(ctx context.Context, accountID string, level int) (*models.VipStatus, error)
	ToggleAutoRenew(ctx context.Context, accountID string) (*models.VipStatus, error)
	CancelVip(ctx context.Context, accountID string) (*models.VipStatus, error)

	TrackActivity(ctx context.Context, accountID string) (*models.ActivityProgress, error)
	ClaimReward(ctx context.Context, accountID string) (*models.ClaimResult, error)
	GetActivityStatus(ctx context.Context, accountID string) (*models.ActivityStatus, error)
	GetDailySummary(ctx context.Context, accountID string) (*models.DailySummary, error)

	GetCharityStats(ctx context.Context) (*models.CharityStats, error)
}
