package repository

import (
	"context"
	"testing"
	"time"

	"rewardledger/events"
	"rewardledger/models"
	"rewardledger/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	bus := events.NewBus()
	received := make(chan events.Event, 4)
	bus.Subscribe(events.EventTypeRewardClaimed, func(ctx context.Context, e events.Event) {
		received <- e
	})
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	t.Run("rollback drops writes and events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.AccountRepository().Create(ctx, "acct-1", "UTC")
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.RewardClaimedEvent{AccountID: "acct-1"}))
		require.NoError(t, uow.Rollback())

		wallet, err := NewAccountRepository(testDB.DB).GetByID(ctx, "acct-1")
		require.NoError(t, err)
		assert.Nil(t, wallet)

		select {
		case <-received:
			t.Fatal("event delivered after rollback")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("commit persists writes and flushes events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		_, err := uow.AccountRepository().Create(ctx, "acct-1", "UTC")
		require.NoError(t, err)
		wallet, err := uow.AccountRepository().ApplyDelta(ctx, "acct-1", models.CurrencyStars, 25)
		require.NoError(t, err)
		require.NotNil(t, wallet)
		require.NoError(t, uow.EventBus().Publish(events.RewardClaimedEvent{AccountID: "acct-1"}))
		require.NoError(t, uow.Commit())

		stored, err := NewAccountRepository(testDB.DB).GetByID(ctx, "acct-1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, int64(25), stored.StarsBalance)

		select {
		case e := <-received:
			assert.Equal(t, events.EventTypeRewardClaimed, e.Type())
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered after commit")
		}
	})

	t.Run("begin twice", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		assert.Error(t, uow.Begin(ctx))
	})

	t.Run("repositories need begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.AccountRepository() })
	})
}
