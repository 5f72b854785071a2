package models

import (
	"fmt"
	"time"
)

// CurrencyField names one of the wallet counters a ledger entry affects
type CurrencyField string

const (
	CurrencyCoins        CurrencyField = "coins_balance"
	CurrencyBonus        CurrencyField = "bonus_balance"
	CurrencyStars        CurrencyField = "stars_balance"
	CurrencyWithdrawable CurrencyField = "withdrawable_balance"

	// CurrencyCharityPool is carried by charity_skim entries. It is not a
	// wallet counter and never affects account balances.
	CurrencyCharityPool CurrencyField = "charity_pool"
)

// WalletFields lists the four account counters in display order
var WalletFields = []CurrencyField{CurrencyCoins, CurrencyBonus, CurrencyStars, CurrencyWithdrawable}

// IsWalletField reports whether the field is one of the account counters
func (f CurrencyField) IsWalletField() bool {
	switch f {
	case CurrencyCoins, CurrencyBonus, CurrencyStars, CurrencyWithdrawable:
		return true
	}
	return false
}

// ParseCurrencyField validates a field name received from a caller
func ParseCurrencyField(s string) (CurrencyField, error) {
	f := CurrencyField(s)
	if !f.IsWalletField() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyField, s)
	}
	return f, nil
}

// Wallet is the materialized view of an account's ledger
type Wallet struct {
	AccountID           string    `db:"account_id" json:"account_id"`
	Timezone            string    `db:"timezone" json:"timezone"`
	CoinsBalance        int64     `db:"coins_balance" json:"coins_balance"`
	BonusBalance        int64     `db:"bonus_balance" json:"bonus_balance"`
	StarsBalance        int64     `db:"stars_balance" json:"stars_balance"`
	WithdrawableBalance int64     `db:"withdrawable_balance" json:"withdrawable_balance"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Balance returns the counter for field
func (w *Wallet) Balance(field CurrencyField) int64 {
	switch field {
	case CurrencyCoins:
		return w.CoinsBalance
	case CurrencyBonus:
		return w.BonusBalance
	case CurrencyStars:
		return w.StarsBalance
	case CurrencyWithdrawable:
		return w.WithdrawableBalance
	}
	return 0
}

// Apply adds delta to field. The wallet is left untouched and
// ErrInsufficientFunds is returned when the counter would go negative.
func (w *Wallet) Apply(field CurrencyField, delta int64) error {
	if !field.IsWalletField() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrencyField, field)
	}
	next := w.Balance(field) + delta
	if next < 0 {
		return ErrInsufficientFunds
	}
	switch field {
	case CurrencyCoins:
		w.CoinsBalance = next
	case CurrencyBonus:
		w.BonusBalance = next
	case CurrencyStars:
		w.StarsBalance = next
	case CurrencyWithdrawable:
		w.WithdrawableBalance = next
	}
	return nil
}

// Location resolves the account's reporting timezone, falling back to UTC
func (w *Wallet) Location() *time.Location {
	if w.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Balances is the caller-facing snapshot of the four counters
type Balances struct {
	CoinsBalance        int64 `json:"coins_balance"`
	BonusBalance        int64 `json:"bonus_balance"`
	StarsBalance        int64 `json:"stars_balance"`
	WithdrawableBalance int64 `json:"withdrawable_balance"`
}

// Balances returns the counter snapshot
func (w *Wallet) Balances() Balances {
	return Balances{
		CoinsBalance:        w.CoinsBalance,
		BonusBalance:        w.BonusBalance,
		StarsBalance:        w.StarsBalance,
		WithdrawableBalance: w.WithdrawableBalance,
	}
}
