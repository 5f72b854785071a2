package repository

import (
	"context"
	"time"

	"rewardledger/database"
	"rewardledger/models"

	"github.com/jackc/pgx/v5"
)

const accrualColumns = `account_id, day, total_active_minutes_today, minutes_towards_next_reward,
	rewards_available, rewards_granted_today, rewards_claimed_today, first_claim_of_day,
	coins_earned_today, last_tick_at`

// ActivityAccrualRepository implements the ActivityAccrualRepository interface
type ActivityAccrualRepository struct {
	q queryable
}

// NewActivityAccrualRepository creates a new activity accrual repository
func NewActivityAccrualRepository(db *database.DB) *ActivityAccrualRepository {
	return &ActivityAccrualRepository{q: db.Pool}
}

// newActivityAccrualRepositoryWithTx creates a new activity accrual repository with a transaction
func newActivityAccrualRepositoryWithTx(tx queryable) *ActivityAccrualRepository {
	return &ActivityAccrualRepository{q: tx}
}

func scanAccrual(row pgx.Row) (*models.ActivityAccrual, error) {
	var a models.ActivityAccrual
	err := row.Scan(
		&a.AccountID,
		&a.Day,
		&a.TotalActiveMinutesToday,
		&a.MinutesTowardsNextReward,
		&a.RewardsAvailable,
		&a.RewardsGrantedToday,
		&a.RewardsClaimedToday,
		&a.FirstClaimOfDay,
		&a.CoinsEarnedToday,
		&a.LastTickAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetLatest returns the most recent day's row
func (r *ActivityAccrualRepository) GetLatest(ctx context.Context, accountID string) (*models.ActivityAccrual, error) {
	query := `
		SELECT ` + accrualColumns + `
		FROM activity_accruals
		WHERE account_id = $1
		ORDER BY day DESC
		LIMIT 1
	`
	accrual, err := scanAccrual(r.q.QueryRow(ctx, query, accountID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to get activity accrual for %s", accountID)
	}
	return accrual, nil
}

// Save upserts the row for (account, day)
func (r *ActivityAccrualRepository) Save(ctx context.Context, a *models.ActivityAccrual) error {
	query := `
		INSERT INTO activity_accruals (` + accrualColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, day) DO UPDATE SET
			total_active_minutes_today = EXCLUDED.total_active_minutes_today,
			minutes_towards_next_reward = EXCLUDED.minutes_towards_next_reward,
			rewards_available = EXCLUDED.rewards_available,
			rewards_granted_today = EXCLUDED.rewards_granted_today,
			rewards_claimed_today = EXCLUDED.rewards_claimed_today,
			first_claim_of_day = EXCLUDED.first_claim_of_day,
			coins_earned_today = EXCLUDED.coins_earned_today,
			last_tick_at = EXCLUDED.last_tick_at,
			updated_at = NOW()
	`
	_, err := r.q.Exec(ctx, query,
		a.AccountID,
		a.Day,
		a.TotalActiveMinutesToday,
		a.MinutesTowardsNextReward,
		a.RewardsAvailable,
		a.RewardsGrantedToday,
		a.RewardsClaimedToday,
		a.FirstClaimOfDay,
		a.CoinsEarnedToday,
		a.LastTickAt,
	)
	if err != nil {
		return classifyError(err, "failed to save activity accrual for %s", a.AccountID)
	}
	return nil
}

// ListSince returns rows with day >= since, oldest first
func (r *ActivityAccrualRepository) ListSince(ctx context.Context, accountID string, since time.Time) ([]*models.ActivityAccrual, error) {
	query := `
		SELECT ` + accrualColumns + `
		FROM activity_accruals
		WHERE account_id = $1 AND day >= $2
		ORDER BY day ASC
	`
	rows, err := r.q.Query(ctx, query, accountID, since)
	if err != nil {
		return nil, classifyError(err, "failed to list activity accruals for %s", accountID)
	}
	defer rows.Close()

	var accruals []*models.ActivityAccrual
	for rows.Next() {
		a, err := scanAccrual(rows)
		if err != nil {
			return nil, classifyError(err, "failed to scan activity accrual")
		}
		accruals = append(accruals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to iterate activity accruals")
	}
	return accruals, nil
}
