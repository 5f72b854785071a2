package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryKind is the type of a ledger entry
type EntryKind string

const (
	EntryKindDeposit      EntryKind = "deposit"
	EntryKindWithdrawal   EntryKind = "withdrawal"
	EntryKindVipFee       EntryKind = "vip_fee"
	EntryKindRewardCredit EntryKind = "reward_credit"
	EntryKindCharitySkim  EntryKind = "charity_skim"
	EntryKindTransfer     EntryKind = "transfer"
	EntryKindConversion   EntryKind = "conversion"
)

// EntryStatus tracks external settlement of an entry
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusPending   EntryStatus = "pending"
)

// ParseEntryKind validates a kind received from a caller
func ParseEntryKind(s string) (EntryKind, error) {
	switch k := EntryKind(s); k {
	case EntryKindDeposit, EntryKindWithdrawal, EntryKindVipFee, EntryKindRewardCredit,
		EntryKindCharitySkim, EntryKindTransfer, EntryKindConversion:
		return k, nil
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

// Qualifies reports whether entries of this kind are skimmed into the charity pool
func (k EntryKind) Qualifies() bool {
	return k == EntryKindDeposit || k == EntryKindWithdrawal
}

// ValidateAmount checks the sign of a signed amount against the kind.
// Credit-only kinds require a positive amount, debit-only kinds a negative one.
func (k EntryKind) ValidateAmount(signedAmount int64) error {
	if signedAmount == 0 {
		return fmt.Errorf("%w: zero amount for %s", ErrInvalidAmount, k)
	}
	switch k {
	case EntryKindDeposit, EntryKindRewardCredit, EntryKindCharitySkim:
		if signedAmount < 0 {
			return fmt.Errorf("%w: %s must be a credit", ErrInvalidAmount, k)
		}
	case EntryKindWithdrawal, EntryKindVipFee:
		if signedAmount > 0 {
			return fmt.Errorf("%w: %s must be a debit", ErrInvalidAmount, k)
		}
	case EntryKindTransfer, EntryKindConversion:
	default:
		return fmt.Errorf("%w: unknown entry kind %q", ErrInvalidAmount, k)
	}
	return nil
}

// LedgerEntry is one immutable line of the account ledger
type LedgerEntry struct {
	ID            uuid.UUID      `db:"entry_id" json:"entry_id"`
	Sequence      int64          `db:"seq" json:"-"`
	AccountID     string         `db:"account_id" json:"account_id"`
	Kind          EntryKind      `db:"kind" json:"kind"`
	CurrencyField CurrencyField  `db:"currency_field" json:"currency_field"`
	Amount        int64          `db:"amount" json:"amount"`
	BalanceAfter  int64          `db:"balance_after" json:"balance_after"`
	Status        EntryStatus    `db:"status" json:"status"`
	CorrelationID uuid.UUID      `db:"correlation_id" json:"correlation_id"`
	Description   string         `db:"description" json:"description"`
	Metadata      map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// EntryFilter narrows a ledger listing
type EntryFilter struct {
	Kind   *EntryKind
	Limit  int
	Offset int
}

const (
	DefaultEntryLimit = 50
	MaxEntryLimit     = 200
)

// Normalize clamps the paging parameters
func (f EntryFilter) Normalize() EntryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultEntryLimit
	}
	if f.Limit > MaxEntryLimit {
		f.Limit = MaxEntryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ReplayBalances rebuilds wallet counters from an ordered entry sequence.
// Entries that do not target a wallet counter (charity skims) are ignored.
func ReplayBalances(entries []*LedgerEntry) (Balances, error) {
	w := &Wallet{}
	for _, e := range entries {
		if !e.CurrencyField.IsWalletField() {
			continue
		}
		if err := w.Apply(e.CurrencyField, e.Amount); err != nil {
			return Balances{}, fmt.Errorf("entry %s drives %s negative: %w", e.ID, e.CurrencyField, err)
		}
	}
	return w.Balances(), nil
}

// Reconciliation compares the replayed ledger against the stored wallet
type Reconciliation struct {
	AccountID  string   `json:"account_id"`
	Stored     Balances `json:"stored"`
	Replayed   Balances `json:"replayed"`
	EntryCount int      `json:"entry_count"`
	Consistent bool     `json:"consistent"`
}

// TransactionResult is returned by single-account money operations
type TransactionResult struct {
	CorrelationID uuid.UUID   `json:"correlation_id"`
	Status        EntryStatus `json:"status"`
	Amount        int64       `json:"amount"`
	CharitySkim   int64       `json:"charity_skim,omitempty"`
	Balances      Balances    `json:"balances"`
}

// TransferResult is returned by account-to-account transfers
type TransferResult struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Amount        int64     `json:"amount"`
	From          Balances  `json:"from"`
	To            Balances  `json:"to"`
}
