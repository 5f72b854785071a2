package service

import (
	"context"
	"testing"

	"rewardledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransactionProcessor_Deposit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("credits coins and reports skim", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(500)).
			Return(walletWith(500, 0, 0), nil)
		m.ExpectAppend(models.EntryKindDeposit)
		m.ExpectAppend(models.EntryKindCharitySkim)
		m.Charity.On("Add", ctx, mock.Anything, int64(10)).Return(int64(10), nil)

		result, err := p.Deposit(ctx, testAccountID, 500)
		require.NoError(t, err)
		require.NoError(t, p.ledger.FlushSkims(ctx))
		assert.Equal(t, int64(500), result.Amount)
		assert.Equal(t, int64(10), result.CharitySkim)
		assert.Equal(t, int64(500), result.Balances.CoinsBalance)
		assert.Equal(t, models.EntryStatusCompleted, result.Status)
		m.AssertAllExpectations(t)
	})

	for name, amount := range map[string]int64{"zero": 0, "negative": -5, "over maximum": 100001} {
		t.Run("rejects "+name, func(t *testing.T) {
			m := NewTestMocks()
			p := m.Processor(fixedClock(testNow))

			_, err := p.Deposit(ctx, testAccountID, amount)
			assert.ErrorIs(t, err, models.ErrInvalidAmount)
			m.Accounts.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTransactionProcessor_Withdraw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name         string
		withdrawable int64
		amount       int64
		wantErr      error
	}{
		{name: "amount below minimum", withdrawable: 1000, amount: 99, wantErr: models.ErrBelowMinimumWithdrawal},
		{name: "balance below minimum", withdrawable: 99, amount: 100, wantErr: models.ErrBelowMinimumWithdrawal},
		{name: "non-positive amount", withdrawable: 1000, amount: 0, wantErr: models.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTestMocks()
			p := m.Processor(fixedClock(testNow))

			_, err := p.Withdraw(ctx, walletWith(0, tt.withdrawable, 0), tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			m.Accounts.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("records a pending withdrawal", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyWithdrawable, int64(-300)).
			Return(walletWith(0, 200, 0), nil)
		m.Entries.On("Append", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
			return e.Kind == models.EntryKindWithdrawal && e.Status == models.EntryStatusPending
		})).Return(nil)
		m.ExpectAppend(models.EntryKindCharitySkim)
		m.Charity.On("Add", ctx, mock.Anything, int64(6)).Return(int64(6), nil)

		result, err := p.Withdraw(ctx, walletWith(0, 500, 0), 300)
		require.NoError(t, err)
		require.NoError(t, p.ledger.FlushSkims(ctx))
		assert.Equal(t, models.EntryStatusPending, result.Status)
		assert.Equal(t, int64(200), result.Balances.WithdrawableBalance)
		m.AssertAllExpectations(t)
	})

	t.Run("insufficient earnings", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyWithdrawable, int64(-600)).Return(nil, nil)

		_, err := p.Withdraw(ctx, walletWith(0, 500, 0), 600)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	})
}

func TestTransactionProcessor_Transfer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("coins to withdrawable share one correlation id", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(-100)).
			Return(walletWith(400, 0, 0), nil)
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyWithdrawable, int64(100)).
			Return(walletWith(400, 100, 0), nil)

		var appended []*models.LedgerEntry
		m.Entries.On("Append", ctx, mock.Anything).Run(func(args mock.Arguments) {
			appended = append(appended, args.Get(1).(*models.LedgerEntry))
		}).Return(nil)

		result, err := p.Transfer(ctx, testAccountID, models.CurrencyCoins, models.CurrencyWithdrawable, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), result.Balances.WithdrawableBalance)
		assert.Zero(t, result.CharitySkim)

		require.Len(t, appended, 2)
		assert.Equal(t, appended[0].CorrelationID, appended[1].CorrelationID)
		assert.Equal(t, result.CorrelationID, appended[0].CorrelationID)
	})

	pairs := [][2]models.CurrencyField{
		{models.CurrencyCoins, models.CurrencyStars},
		{models.CurrencyBonus, models.CurrencyWithdrawable},
		{models.CurrencyCoins, models.CurrencyCoins},
	}
	for _, pair := range pairs {
		t.Run("rejects "+string(pair[0])+" to "+string(pair[1]), func(t *testing.T) {
			m := NewTestMocks()
			p := m.Processor(fixedClock(testNow))

			_, err := p.Transfer(ctx, testAccountID, pair[0], pair[1], 10)
			assert.ErrorIs(t, err, models.ErrInvalidCurrencyField)
		})
	}
}

func TestTransactionProcessor_TransferBetweenAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("self transfer", func(t *testing.T) {
		m := NewTestMocks()
		_, err := m.Processor(fixedClock(testNow)).TransferBetweenAccounts(ctx, testAccountID, testAccountID, 10)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	})

	t.Run("moves coins", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		recipient := walletWith(10, 0, 0)
		recipient.AccountID = testOtherID
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(-10)).Return(walletWith(90, 0, 0), nil)
		m.Accounts.On("ApplyDelta", ctx, testOtherID, models.CurrencyCoins, int64(10)).Return(recipient, nil)
		m.ExpectAppend(models.EntryKindTransfer).Twice()

		result, err := p.TransferBetweenAccounts(ctx, testAccountID, testOtherID, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(90), result.From.CoinsBalance)
		assert.Equal(t, int64(10), result.To.CoinsBalance)
		m.AssertAllExpectations(t)
	})
}

func TestTransactionProcessor_ConvertStars(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("keeps the fee", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyStars, int64(-100)).Return(walletWith(0, 0, 0), nil)
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(92)).Return(walletWith(92, 0, 0), nil)
		m.ExpectAppend(models.EntryKindConversion).Twice()

		result, err := p.ConvertStars(ctx, testAccountID, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(92), result.Amount)
		assert.Equal(t, int64(92), result.Balances.CoinsBalance)
		m.AssertAllExpectations(t)
	})

	t.Run("one star yields coins", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))

		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyStars, int64(-1)).Return(walletWith(0, 0, 0), nil)
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(1)).Return(walletWith(1, 0, 0), nil)
		m.ExpectAppend(models.EntryKindConversion).Twice()

		result, err := p.ConvertStars(ctx, testAccountID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Amount)
	})

	t.Run("not enough stars", func(t *testing.T) {
		m := NewTestMocks()
		p := m.Processor(fixedClock(testNow))
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyStars, int64(-100)).Return(nil, nil)

		_, err := p.ConvertStars(ctx, testAccountID, 100)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		m.Accounts.AssertNotCalled(t, "ApplyDelta", ctx, testAccountID, models.CurrencyCoins, mock.Anything)
	})
}

func TestTransactionProcessor_DebitForVip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("free level records nothing", func(t *testing.T) {
		m := NewTestMocks()
		result, err := m.Processor(fixedClock(testNow)).DebitForVip(ctx, testAccountID, 0, 0)
		require.NoError(t, err)
		assert.Nil(t, result)
		m.Accounts.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("charges coins", func(t *testing.T) {
		m := NewTestMocks()
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(-150)).Return(walletWith(850, 0, 0), nil)
		m.Entries.On("Append", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
			return e.Kind == models.EntryKindVipFee && e.Metadata["level"] == 2
		})).Return(nil)

		result, err := m.Processor(fixedClock(testNow)).DebitForVip(ctx, testAccountID, 150, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(850), result.Balances.CoinsBalance)
		assert.Zero(t, result.CharitySkim)
		m.AssertAllExpectations(t)
	})
}

func TestTransactionProcessor_CreditReward(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	_, err := m.Processor(fixedClock(testNow)).CreditReward(ctx, testAccountID, 0, models.CurrencyCoins, nil)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyBonus, int64(250)).Return(&models.Wallet{BonusBalance: 250}, nil)
	m.ExpectAppend(models.EntryKindRewardCredit)

	result, err := m.Processor(fixedClock(testNow)).CreditReward(ctx, testAccountID, 250, models.CurrencyBonus, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.Balances.BonusBalance)
	m.AssertAllExpectations(t)
}
