package repository

import (
	"context"
	"fmt"

	"rewardledger/database"
	"rewardledger/models"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `account_id, timezone, coins_balance, bonus_balance, stars_balance, withdrawable_balance, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(
		&w.AccountID,
		&w.Timezone,
		&w.CoinsBalance,
		&w.BonusBalance,
		&w.StarsBalance,
		&w.WithdrawableBalance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a zeroed wallet. It reports false when the account already existed.
func (r *AccountRepository) Create(ctx context.Context, accountID string, timezone string) (bool, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	query := `
		INSERT INTO wallets (account_id, timezone)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING
	`
	tag, err := r.q.Exec(ctx, query, accountID, timezone)
	if err != nil {
		return false, classifyError(err, "failed to create account %s", accountID)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a wallet without locking it
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to get account %s", accountID)
	}
	return wallet, nil
}

// GetForUpdate retrieves a wallet and holds its row lock until the transaction ends
func (r *AccountRepository) GetForUpdate(ctx context.Context, accountID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1 FOR UPDATE`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to lock account %s", accountID)
	}
	return wallet, nil
}

// ApplyDelta adds delta to one counter. The update is conditional on the
// result staying non-negative; nil, nil means no row qualified.
func (r *AccountRepository) ApplyDelta(ctx context.Context, accountID string, field models.CurrencyField, delta int64) (*models.Wallet, error) {
	// Column names cannot be bound, so only known counters are interpolated
	if !field.IsWalletField() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidCurrencyField, field)
	}
	column := string(field)

	query := fmt.Sprintf(`
		UPDATE wallets
		SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE account_id = $1 AND %[1]s + $2 >= 0
		RETURNING %[2]s
	`, column, walletColumns)

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID, delta))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to apply %d to %s of account %s", delta, column, accountID)
	}
	return wallet, nil
}
