package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"rewardledger/database"
	"rewardledger/models"

	"github.com/jackc/pgx/v5"
)

const entryColumns = `seq, entry_id, account_id, kind, currency_field, amount, balance_after, status, correlation_id, description, metadata, created_at`

// LedgerEntryRepository implements the LedgerEntryRepository interface
type LedgerEntryRepository struct {
	q queryable
}

// NewLedgerEntryRepository creates a new ledger entry repository
func NewLedgerEntryRepository(db *database.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{q: db.Pool}
}

// newLedgerEntryRepositoryWithTx creates a new ledger entry repository with a transaction
func newLedgerEntryRepositoryWithTx(tx queryable) *LedgerEntryRepository {
	return &LedgerEntryRepository{q: tx}
}

// Append writes one entry and fills in its sequence number
func (r *LedgerEntryRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal entry metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (
			entry_id, account_id, kind, currency_field, amount, balance_after,
			status, correlation_id, description, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq, created_at
	`
	err = r.q.QueryRow(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Kind,
		entry.CurrencyField,
		entry.Amount,
		entry.BalanceAfter,
		entry.Status,
		entry.CorrelationID,
		entry.Description,
		metadataJSON,
		entry.CreatedAt,
	).Scan(&entry.Sequence, &entry.CreatedAt)
	if err != nil {
		return classifyError(err, "failed to append %s entry for account %s", entry.Kind, entry.AccountID)
	}
	return nil
}

// ListByAccount pages an account's entries, newest first
func (r *LedgerEntryRepository) ListByAccount(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	filter = filter.Normalize()

	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		  AND ($2::text IS NULL OR kind = $2::text)
		ORDER BY seq DESC
		LIMIT $3 OFFSET $4
	`
	var kind *string
	if filter.Kind != nil {
		k := string(*filter.Kind)
		kind = &k
	}

	rows, err := r.q.Query(ctx, query, accountID, kind, filter.Limit, filter.Offset)
	if err != nil {
		return nil, classifyError(err, "failed to list entries for account %s", accountID)
	}
	return collectEntries(rows)
}

// ListAllByAccount returns every entry of an account in append order
func (r *LedgerEntryRepository) ListAllByAccount(ctx context.Context, accountID string) ([]*models.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, classifyError(err, "failed to list entries for account %s", accountID)
	}
	return collectEntries(rows)
}

// SumCharitySkims totals every charity_skim entry
func (r *LedgerEntryRepository) SumCharitySkims(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE kind = 'charity_skim'`

	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, classifyError(err, "failed to sum charity skims")
	}
	return total, nil
}

func collectEntries(rows pgx.Rows) ([]*models.LedgerEntry, error) {
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var metadataJSON []byte
		err := rows.Scan(
			&e.Sequence,
			&e.ID,
			&e.AccountID,
			&e.Kind,
			&e.CurrencyField,
			&e.Amount,
			&e.BalanceAfter,
			&e.Status,
			&e.CorrelationID,
			&e.Description,
			&metadataJSON,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entry metadata: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to iterate ledger entries")
	}
	return entries, nil
}
