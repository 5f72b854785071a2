package service

import (
	"context"
	"testing"
	"time"

	"rewardledger/events"
	"rewardledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTracker(m *TestMocks, now time.Time) *ActivityTracker {
	clock := fixedClock(now)
	return NewActivityTracker(m.UoW, m.Processor(clock), testRewards(), clock)
}

func TestActivityTracker_TickCountsAndSaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	today := models.DayOf(testNow, time.UTC)
	row := models.NewActivityAccrual(testAccountID, today)
	row.MinutesTowardsNextReward = 14
	row.TotalActiveMinutesToday = 14
	last := testNow.Add(-time.Minute)
	row.LastTickAt = &last

	m.Activity.On("GetLatest", ctx, testAccountID).Return(row, nil)
	m.Activity.On("Save", ctx, row).Return(nil)

	progress, err := newTestTracker(m, testNow).Tick(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.True(t, progress.Counted)
	assert.Equal(t, 1, progress.RewardsAvailable)
	assert.Equal(t, 0, progress.MinutesTowardsNextReward)
	assert.Equal(t, float64(0), progress.ProgressPercent)

	ticks := m.Publisher.OfType(events.EventTypeActivityTick)
	require.Len(t, ticks, 1)
	assert.True(t, ticks[0].(events.ActivityTickEvent).Granted)
	m.AssertAllExpectations(t)
}

func TestActivityTracker_DebouncedTickIsNotSaved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	row := models.NewActivityAccrual(testAccountID, models.DayOf(testNow, time.UTC))
	last := testNow.Add(-10 * time.Second)
	row.LastTickAt = &last
	m.Activity.On("GetLatest", ctx, testAccountID).Return(row, nil)

	progress, err := newTestTracker(m, testNow).Tick(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.False(t, progress.Counted)
	m.Activity.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestActivityTracker_RolloverResetsDailyCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	yesterday := models.DayOf(testNow, time.UTC).AddDate(0, 0, -1)
	old := models.NewActivityAccrual(testAccountID, yesterday)
	old.RewardsClaimedToday = 6
	old.RewardsGrantedToday = 6
	old.FirstClaimOfDay = false
	old.TotalActiveMinutesToday = 200
	m.Activity.On("GetLatest", ctx, testAccountID).Return(old, nil)

	var saved *models.ActivityAccrual
	m.Activity.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.ActivityAccrual)
	}).Return(nil)

	_, err := newTestTracker(m, testNow).Tick(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Day.Equal(yesterday.AddDate(0, 0, 1)))
	assert.Equal(t, 0, saved.RewardsClaimedToday)
	assert.Equal(t, 1, saved.TotalActiveMinutesToday)
	assert.True(t, saved.FirstClaimOfDay)
}

func TestActivityTracker_RolloverUsesAccountTimezone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	// 23:30 UTC is already the next day in Tokyo
	now := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	wallet := walletWith(0, 0, 0)
	wallet.Timezone = "Asia/Tokyo"

	m.Activity.On("GetLatest", ctx, testAccountID).Return(nil, nil)
	m.Activity.On("Save", ctx, mock.MatchedBy(func(a *models.ActivityAccrual) bool {
		return a.Day.Format(time.DateOnly) == "2026-03-15"
	})).Return(nil)

	_, err := newTestTracker(m, now).Tick(ctx, wallet)
	require.NoError(t, err)
	m.AssertAllExpectations(t)
}

func TestActivityTracker_Claim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nothing available changes nothing", func(t *testing.T) {
		m := NewTestMocks()
		m.Activity.On("GetLatest", ctx, testAccountID).Return(models.NewActivityAccrual(testAccountID, models.DayOf(testNow, time.UTC)), nil)

		_, err := newTestTracker(m, testNow).Claim(ctx, walletWith(0, 0, 0))
		assert.ErrorIs(t, err, models.ErrNothingToClaim)
		m.Accounts.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.Activity.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("first claim includes the bonus", func(t *testing.T) {
		m := NewTestMocks()
		row := models.NewActivityAccrual(testAccountID, models.DayOf(testNow, time.UTC))
		row.RewardsAvailable = 2
		row.RewardsGrantedToday = 2
		m.Activity.On("GetLatest", ctx, testAccountID).Return(row, nil)
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(250)).Return(walletWith(250, 0, 0), nil)
		m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(200)).Return(walletWith(450, 0, 0), nil)
		m.ExpectAppend(models.EntryKindRewardCredit).Twice()
		m.Activity.On("Save", ctx, row).Return(nil).Twice()
		tracker := newTestTracker(m, testNow)

		first, err := tracker.Claim(ctx, walletWith(0, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(250), first.RewardAmount)
		assert.True(t, first.DailyBonusIncluded)

		second, err := tracker.Claim(ctx, walletWith(250, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(200), second.RewardAmount)
		assert.False(t, second.DailyBonusIncluded)

		assert.Equal(t, 0, row.RewardsAvailable)
		assert.Equal(t, 2, row.RewardsClaimedToday)
		assert.Equal(t, int64(450), row.CoinsEarnedToday)
		assert.Len(t, m.Publisher.OfType(events.EventTypeRewardClaimed), 2)
		m.AssertAllExpectations(t)
	})

	t.Run("unclaimed rewards do not survive midnight", func(t *testing.T) {
		m := NewTestMocks()
		old := models.NewActivityAccrual(testAccountID, models.DayOf(testNow, time.UTC).AddDate(0, 0, -1))
		old.RewardsAvailable = 3
		m.Activity.On("GetLatest", ctx, testAccountID).Return(old, nil)

		_, err := newTestTracker(m, testNow).Claim(ctx, walletWith(0, 0, 0))
		assert.ErrorIs(t, err, models.ErrNothingToClaim)
	})
}

// memoryAccruals keeps the latest row in memory
type memoryAccruals struct {
	row *models.ActivityAccrual
}

func (r *memoryAccruals) GetLatest(context.Context, string) (*models.ActivityAccrual, error) {
	return r.row, nil
}

func (r *memoryAccruals) Save(_ context.Context, a *models.ActivityAccrual) error {
	r.row = a
	return nil
}

func (r *memoryAccruals) ListSince(context.Context, string, time.Time) ([]*models.ActivityAccrual, error) {
	if r.row == nil {
		return nil, nil
	}
	return []*models.ActivityAccrual{r.row}, nil
}

func TestActivityTracker_FifteenTicksThenClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()
	accruals := &memoryAccruals{}
	m.UoW.SetRepositories(m.Accounts, m.Entries, m.Charity, m.Vip, accruals, m.Publisher)

	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	var progress *models.ActivityProgress
	for i := 0; i < 15; i++ {
		var err error
		progress, err = newTestTracker(m, start.Add(time.Duration(i)*time.Minute)).Tick(ctx, walletWith(0, 0, 0))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, progress.RewardsAvailable)
	assert.Equal(t, 0, progress.MinutesTowardsNextReward)
	assert.Equal(t, 15, accruals.row.TotalActiveMinutesToday)

	m.Accounts.On("ApplyDelta", ctx, testAccountID, models.CurrencyCoins, int64(250)).Return(walletWith(250, 0, 0), nil)
	m.ExpectAppend(models.EntryKindRewardCredit)

	claim, err := newTestTracker(m, start.Add(20*time.Minute)).Claim(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(250), claim.RewardAmount)
	assert.True(t, claim.DailyBonusIncluded)
	assert.Equal(t, 0, accruals.row.MinutesTowardsNextReward)
	assert.Equal(t, 0, accruals.row.RewardsAvailable)

	_, err = newTestTracker(m, start.Add(21*time.Minute)).Claim(ctx, walletWith(250, 0, 0))
	assert.ErrorIs(t, err, models.ErrNothingToClaim)
}

func TestActivityTracker_Summary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	today := models.DayOf(testNow, time.UTC)
	rows := []*models.ActivityAccrual{
		{AccountID: testAccountID, Day: today.AddDate(0, 0, -2), RewardsClaimedToday: 1, CoinsEarnedToday: 250},
		{AccountID: testAccountID, Day: today.AddDate(0, 0, -1), RewardsClaimedToday: 2, CoinsEarnedToday: 450},
	}
	m.Activity.On("ListSince", ctx, testAccountID, today.AddDate(0, 0, -6)).Return(rows, nil)

	summary, err := newTestTracker(m, testNow).Summary(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.Len(t, summary.Days, SummaryDays)
	assert.Equal(t, 2, summary.Streak)
	assert.Zero(t, summary.EarnedToday)
}

func TestActivityTracker_ClockStepBackKeepsLaterDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()

	later := models.DayOf(testNow, time.UTC).AddDate(0, 0, 1)
	lastTick := later.Add(2 * time.Minute)
	row := models.NewActivityAccrual(testAccountID, later)
	row.TotalActiveMinutesToday = 90
	row.RewardsGrantedToday = 6
	row.RewardsClaimedToday = 6
	row.FirstClaimOfDay = false
	row.CoinsEarnedToday = 1250
	row.LastTickAt = &lastTick
	m.Activity.On("GetLatest", ctx, testAccountID).Return(row, nil)

	// 23:57 on the previous day, five minutes before the stored last tick
	now := later.Add(-3 * time.Minute)
	tracker := newTestTracker(m, now)

	progress, err := tracker.Tick(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.False(t, progress.Counted)
	m.Activity.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	_, err = tracker.Claim(ctx, walletWith(0, 0, 0))
	assert.ErrorIs(t, err, models.ErrNothingToClaim)

	status, err := tracker.Status(ctx, walletWith(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, later.Format(time.DateOnly), status.Day)
	assert.Equal(t, 6, status.RewardsClaimedToday)
	assert.False(t, status.BonusPending)

	assert.Equal(t, 6, row.RewardsClaimedToday)
	assert.Equal(t, int64(1250), row.CoinsEarnedToday)
}
