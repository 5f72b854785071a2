package service

import (
	"context"
	"time"

	"rewardledger/events"
	"rewardledger/models"
)

// AccountRepository owns the wallet rows
type AccountRepository interface {
	// Create inserts a zeroed wallet; reports false when it already existed
	Create(ctx context.Context, accountID string, timezone string) (bool, error)

	// GetByID returns nil, nil when the account does not exist
	GetByID(ctx context.Context, accountID string) (*models.Wallet, error)

	// GetForUpdate reads the wallet and holds its row lock until the transaction ends
	GetForUpdate(ctx context.Context, accountID string) (*models.Wallet, error)

	// ApplyDelta adds delta to one counter unless the result would be negative.
	// Returns nil, nil when no row was updated.
	ApplyDelta(ctx context.Context, accountID string, field models.CurrencyField, delta int64) (*models.Wallet, error)
}

// LedgerEntryRepository is the append-only entry log
type LedgerEntryRepository interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// ListByAccount pages entries newest first
	ListByAccount(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error)

	// ListAllByAccount returns every entry in append order
	ListAllByAccount(ctx context.Context, accountID string) ([]*models.LedgerEntry, error)

	// SumCharitySkims totals every charity_skim entry
	SumCharitySkims(ctx context.Context) (int64, error)
}

// CharityPoolRepository accumulates skims outside the per-account lock
type CharityPoolRepository interface {
	// Add credits one shard and returns the shard's new total
	Add(ctx context.Context, shard int, amount int64) (int64, error)

	// Get sums every shard
	Get(ctx context.Context) (*models.CharityPool, error)
}

// VipSubscriptionRepository owns the VIP rows
type VipSubscriptionRepository interface {
	// Create inserts the row if it is missing
	Create(ctx context.Context, sub *models.VipSubscription) error

	// GetByAccount returns nil, nil when no row exists
	GetByAccount(ctx context.Context, accountID string) (*models.VipSubscription, error)

	Update(ctx context.Context, sub *models.VipSubscription) error

	// ListDueForRenewal returns active accounts whose window ended at or before now
	ListDueForRenewal(ctx context.Context, now time.Time, limit int) ([]string, error)

	// DeferRenewal keeps the account off the due list until the given time
	DeferRenewal(ctx context.Context, accountID string, until time.Time) error
}

// ActivityAccrualRepository owns the per-day activity rows
type ActivityAccrualRepository interface {
	// GetLatest returns the most recent day's row, or nil, nil
	GetLatest(ctx context.Context, accountID string) (*models.ActivityAccrual, error)

	// Save upserts the row for (account, day)
	Save(ctx context.Context, accrual *models.ActivityAccrual) error

	// ListSince returns rows with day >= since, oldest first
	ListSince(ctx context.Context, accountID string, since time.Time) ([]*models.ActivityAccrual, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases buffered events
	Commit() error

	// Rollback rolls back the transaction and drops buffered events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	LedgerEntryRepository() LedgerEntryRepository
	CharityPoolRepository() CharityPoolRepository
	VipSubscriptionRepository() VipSubscriptionRepository
	ActivityAccrualRepository() ActivityAccrualRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
