package repository

import (
	"context"
	"time"

	"rewardledger/database"
	"rewardledger/models"

	"github.com/jackc/pgx/v5"
)

// VipSubscriptionRepository implements the VipSubscriptionRepository interface
type VipSubscriptionRepository struct {
	q queryable
}

// NewVipSubscriptionRepository creates a new VIP subscription repository
func NewVipSubscriptionRepository(db *database.DB) *VipSubscriptionRepository {
	return &VipSubscriptionRepository{q: db.Pool}
}

// newVipSubscriptionRepositoryWithTx creates a new VIP subscription repository with a transaction
func newVipSubscriptionRepositoryWithTx(tx queryable) *VipSubscriptionRepository {
	return &VipSubscriptionRepository{q: tx}
}

// Create inserts the row unless one already exists
func (r *VipSubscriptionRepository) Create(ctx context.Context, sub *models.VipSubscription) error {
	query := `
		INSERT INTO vip_subscriptions (account_id, level, status, total_recharged, auto_renew)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, sub.AccountID, sub.Level, sub.Status, sub.TotalRecharged, sub.AutoRenew)
	if err != nil {
		return classifyError(err, "failed to create vip subscription for %s", sub.AccountID)
	}
	return nil
}

// GetByAccount retrieves the account's subscription
func (r *VipSubscriptionRepository) GetByAccount(ctx context.Context, accountID string) (*models.VipSubscription, error) {
	query := `
		SELECT account_id, level, status, subscription_start, subscription_end,
		       total_recharged, auto_renew, renewal_count, created_at, updated_at
		FROM vip_subscriptions
		WHERE account_id = $1
	`
	var sub models.VipSubscription
	err := r.q.QueryRow(ctx, query, accountID).Scan(
		&sub.AccountID,
		&sub.Level,
		&sub.Status,
		&sub.SubscriptionStart,
		&sub.SubscriptionEnd,
		&sub.TotalRecharged,
		&sub.AutoRenew,
		&sub.RenewalCount,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to get vip subscription for %s", accountID)
	}
	return &sub, nil
}

// Update writes every mutable column. total_recharged can only grow.
func (r *VipSubscriptionRepository) Update(ctx context.Context, sub *models.VipSubscription) error {
	query := `
		UPDATE vip_subscriptions
		SET level = $2,
		    status = $3,
		    subscription_start = $4,
		    subscription_end = $5,
		    total_recharged = GREATEST(total_recharged, $6),
		    auto_renew = $7,
		    renewal_count = $8,
		    renewal_retry_at = NULL,
		    updated_at = NOW()
		WHERE account_id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		sub.AccountID,
		sub.Level,
		sub.Status,
		sub.SubscriptionStart,
		sub.SubscriptionEnd,
		sub.TotalRecharged,
		sub.AutoRenew,
		sub.RenewalCount,
	).Scan(&sub.UpdatedAt)
	if err == pgx.ErrNoRows {
		return classifyError(models.ErrAccountNotFound, "failed to update vip subscription for %s", sub.AccountID)
	}
	if err != nil {
		return classifyError(err, "failed to update vip subscription for %s", sub.AccountID)
	}
	return nil
}

// ListDueForRenewal returns active accounts whose window ended at or before now,
// oldest first. A deferred account is listed again once its retry time passes
// and then sorts by that time, so it cannot hold the head of the batch.
func (r *VipSubscriptionRepository) ListDueForRenewal(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT account_id
		FROM vip_subscriptions
		WHERE status = 'active'
		  AND subscription_end <= $1
		  AND (renewal_retry_at IS NULL OR renewal_retry_at <= $1)
		ORDER BY COALESCE(renewal_retry_at, subscription_end) ASC, account_id ASC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, classifyError(err, "failed to list due vip subscriptions")
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classifyError(err, "failed to scan due vip subscriptions")
	}
	return ids, nil
}

// DeferRenewal hides the account from the due list until the given time.
// The next Update clears the mark.
func (r *VipSubscriptionRepository) DeferRenewal(ctx context.Context, accountID string, until time.Time) error {
	query := `
		UPDATE vip_subscriptions
		SET renewal_retry_at = $2
		WHERE account_id = $1
	`
	tag, err := r.q.Exec(ctx, query, accountID, until)
	if err != nil {
		return classifyError(err, "failed to defer vip renewal for %s", accountID)
	}
	if tag.RowsAffected() == 0 {
		return classifyError(models.ErrAccountNotFound, "failed to defer vip renewal for %s", accountID)
	}
	return nil
}
