package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		field   CurrencyField
		delta   int64
		wantErr error
		want    int64
	}{
		{name: "credit coins", field: CurrencyCoins, delta: 500, want: 1500},
		{name: "debit to exactly zero", field: CurrencyCoins, delta: -1000, want: 0},
		{name: "debit below zero", field: CurrencyCoins, delta: -1001, wantErr: ErrInsufficientFunds, want: 1000},
		{name: "credit stars", field: CurrencyStars, delta: 7, want: 7},
		{name: "debit empty withdrawable", field: CurrencyWithdrawable, delta: -1, wantErr: ErrInsufficientFunds, want: 0},
		{name: "charity pool is not a wallet field", field: CurrencyCharityPool, delta: 10, wantErr: ErrInvalidCurrencyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := &Wallet{AccountID: "acct", CoinsBalance: 1000}
			err := w.Apply(tt.field, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.field.IsWalletField() {
				assert.Equal(t, tt.want, w.Balance(tt.field))
			}
		})
	}
}

func TestParseCurrencyField(t *testing.T) {
	t.Parallel()

	f, err := ParseCurrencyField("bonus_balance")
	require.NoError(t, err)
	assert.Equal(t, CurrencyBonus, f)

	_, err = ParseCurrencyField("charity_pool")
	assert.ErrorIs(t, err, ErrInvalidCurrencyField)

	_, err = ParseCurrencyField("gold")
	assert.ErrorIs(t, err, ErrInvalidCurrencyField)
}

func TestWallet_Location(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "UTC", (&Wallet{}).Location().String())
	assert.Equal(t, "UTC", (&Wallet{Timezone: "Not/AZone"}).Location().String())
	assert.Equal(t, "Asia/Kolkata", (&Wallet{Timezone: "Asia/Kolkata"}).Location().String())
}
