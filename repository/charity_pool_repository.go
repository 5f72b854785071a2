package repository

import (
	"context"
	"fmt"
	"time"

	"rewardledger/database"
	"rewardledger/models"
)

// CharityPoolRepository implements the CharityPoolRepository interface.
// The pool is spread over fixed shards so concurrent skims from different
// accounts rarely contend on one row.
type CharityPoolRepository struct {
	q queryable
}

// NewCharityPoolRepository creates a new charity pool repository
func NewCharityPoolRepository(db *database.DB) *CharityPoolRepository {
	return &CharityPoolRepository{q: db.Pool}
}

// newCharityPoolRepositoryWithTx creates a new charity pool repository with a transaction
func newCharityPoolRepositoryWithTx(tx queryable) *CharityPoolRepository {
	return &CharityPoolRepository{q: tx}
}

// Add credits one shard and returns its new total. Amounts are add-only.
func (r *CharityPoolRepository) Add(ctx context.Context, shard int, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: charity pool is add-only", models.ErrInvalidAmount)
	}
	if shard < 0 || shard >= models.CharityPoolShards {
		return 0, fmt.Errorf("charity shard %d out of range", shard)
	}

	query := `
		UPDATE charity_pool_shards
		SET total = total + $2, contributions = contributions + 1, updated_at = NOW()
		WHERE shard = $1
		RETURNING total
	`
	var total int64
	if err := r.q.QueryRow(ctx, query, shard, amount).Scan(&total); err != nil {
		return 0, classifyError(err, "failed to credit charity shard %d", shard)
	}
	return total, nil
}

// Get sums every shard
func (r *CharityPoolRepository) Get(ctx context.Context) (*models.CharityPool, error) {
	query := `
		SELECT COALESCE(SUM(total), 0), COALESCE(SUM(contributions), 0), COALESCE(MAX(updated_at), NOW())
		FROM charity_pool_shards
	`
	var pool models.CharityPool
	var updatedAt time.Time
	if err := r.q.QueryRow(ctx, query).Scan(&pool.Total, &pool.Contributions, &updatedAt); err != nil {
		return nil, classifyError(err, "failed to read charity pool")
	}
	pool.UpdatedAt = updatedAt
	return &pool, nil
}
