package repository

import (
	"context"
	"testing"
	"time"

	"rewardledger/models"
	"rewardledger/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVipSubscriptionRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewVipSubscriptionRepository(testDB.DB)
	ctx := context.Background()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"acct-1", "acct-2", "acct-3"} {
		_, err := accounts.Create(ctx, id, "UTC")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, models.NewVipSubscription(id)))
	}

	t.Run("create is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, models.NewVipSubscription("acct-1")))
		sub, err := repo.GetByAccount(ctx, "acct-1")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, models.VipStateBasic, sub.Status)
		assert.True(t, sub.AutoRenew)
	})

	t.Run("total recharged never shrinks", func(t *testing.T) {
		sub, err := repo.GetByAccount(ctx, "acct-1")
		require.NoError(t, err)
		sub.TotalRecharged = 600
		require.NoError(t, repo.Update(ctx, sub))

		sub.TotalRecharged = 100
		require.NoError(t, repo.Update(ctx, sub))

		stored, err := repo.GetByAccount(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(600), stored.TotalRecharged)
	})

	t.Run("update missing row", func(t *testing.T) {
		err := repo.Update(ctx, models.NewVipSubscription("nobody"))
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})

	t.Run("due list", func(t *testing.T) {
		for id, end := range map[string]time.Time{
			"acct-1": now.Add(-2 * time.Hour),
			"acct-2": now.Add(-24 * time.Hour),
			"acct-3": now.Add(24 * time.Hour),
		} {
			sub := testutil.CreateActiveSubscription(id, 1, end)
			require.NoError(t, repo.Update(ctx, sub))
		}

		due, err := repo.ListDueForRenewal(ctx, now, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-2", "acct-1"}, due)

		due, err = repo.ListDueForRenewal(ctx, now, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-2"}, due)
	})

	t.Run("deferred account leaves the head of the due list", func(t *testing.T) {
		require.NoError(t, repo.DeferRenewal(ctx, "acct-2", now.Add(time.Hour)))

		due, err := repo.ListDueForRenewal(ctx, now, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-1"}, due)

		// once the retry time passes it sorts by that time, behind older windows
		due, err = repo.ListDueForRenewal(ctx, now.Add(2*time.Hour), 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-1", "acct-2"}, due)

		sub, err := repo.GetByAccount(ctx, "acct-2")
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, sub))

		due, err = repo.ListDueForRenewal(ctx, now, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-2", "acct-1"}, due)
	})

	t.Run("defer missing row", func(t *testing.T) {
		err := repo.DeferRenewal(ctx, "nobody", now)
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestVipSubscriptionRepository_Missing(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewVipSubscriptionRepository(testDB.DB)
	sub, err := repo.GetByAccount(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, sub)
}
