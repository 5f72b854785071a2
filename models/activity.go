package models

import (
	"fmt"
	"time"
)

// RewardConfig drives the activity reward tracker
type RewardConfig struct {
	MinutesRequired int
	CoinsPerReward  int64
	MaxDailyRewards int
	DailyBonus      int64
	MinTickSpacing  time.Duration
	RewardCurrency  CurrencyField
}

// Validate rejects non-positive parameters
func (c RewardConfig) Validate() error {
	if c.MinutesRequired <= 0 {
		return fmt.Errorf("minutes required must be positive")
	}
	if c.CoinsPerReward <= 0 {
		return fmt.Errorf("coins per reward must be positive")
	}
	if c.MaxDailyRewards <= 0 {
		return fmt.Errorf("max daily rewards must be positive")
	}
	if c.DailyBonus < 0 {
		return fmt.Errorf("daily bonus cannot be negative")
	}
	if c.MinTickSpacing < 0 {
		return fmt.Errorf("min tick spacing cannot be negative")
	}
	if !c.RewardCurrency.IsWalletField() {
		return fmt.Errorf("%w: reward currency %q", ErrInvalidCurrencyField, c.RewardCurrency)
	}
	return nil
}

// DayOf returns the calendar date of t in loc, as midnight UTC. This matches
// how a DATE column scans back.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ActivityAccrual is one account-day of activity
type ActivityAccrual struct {
	AccountID                string     `db:"account_id"`
	Day                      time.Time  `db:"day"`
	TotalActiveMinutesToday  int        `db:"total_active_minutes_today"`
	MinutesTowardsNextReward int        `db:"minutes_towards_next_reward"`
	RewardsAvailable         int        `db:"rewards_available"`
	RewardsGrantedToday      int        `db:"rewards_granted_today"`
	RewardsClaimedToday      int        `db:"rewards_claimed_today"`
	FirstClaimOfDay          bool       `db:"first_claim_of_day"`
	CoinsEarnedToday         int64      `db:"coins_earned_today"`
	LastTickAt               *time.Time `db:"last_tick_at"`
}

// NewActivityAccrual starts a day with every counter reset and the bonus pending
func NewActivityAccrual(accountID string, day time.Time) *ActivityAccrual {
	return &ActivityAccrual{
		AccountID:       accountID,
		Day:             day,
		FirstClaimOfDay: true,
	}
}

// RollOver returns the row for day. A row from an earlier day is replaced by a
// fresh one that keeps only the last tick time, so debouncing spans midnight.
// A row from a later day (the clock stepped back) is kept as is; days never
// roll backward.
func RollOver(latest *ActivityAccrual, accountID string, day time.Time) *ActivityAccrual {
	if latest != nil && !latest.Day.Before(day) {
		return latest
	}
	fresh := NewActivityAccrual(accountID, day)
	if latest != nil {
		fresh.LastTickAt = latest.LastTickAt
	}
	return fresh
}

// TickResult reports what a heartbeat did
type TickResult struct {
	Counted bool
	Granted bool
}

// Tick registers one active minute at now
func (a *ActivityAccrual) Tick(now time.Time, cfg RewardConfig) TickResult {
	if a.LastTickAt != nil && now.Sub(*a.LastTickAt) < cfg.MinTickSpacing {
		return TickResult{}
	}
	at := now
	a.LastTickAt = &at
	a.TotalActiveMinutesToday++
	a.MinutesTowardsNextReward++

	result := TickResult{Counted: true}
	if a.MinutesTowardsNextReward >= cfg.MinutesRequired {
		a.MinutesTowardsNextReward = 0
		// past the cap minutes still accrue but no longer grant
		if a.RewardsGrantedToday < cfg.MaxDailyRewards {
			a.RewardsAvailable++
			a.RewardsGrantedToday++
			result.Granted = true
		}
	}
	return result
}

// ClaimResult is the outcome of a successful claim
type ClaimResult struct {
	RewardAmount       int64 `json:"reward_amount"`
	DailyBonusIncluded bool  `json:"daily_bonus_included"`
}

// Claim consumes one available reward
func (a *ActivityAccrual) Claim(cfg RewardConfig) (ClaimResult, error) {
	if a.RewardsAvailable <= 0 {
		return ClaimResult{}, ErrNothingToClaim
	}
	a.RewardsAvailable--
	a.RewardsClaimedToday++

	result := ClaimResult{RewardAmount: cfg.CoinsPerReward}
	if a.FirstClaimOfDay {
		a.FirstClaimOfDay = false
		if cfg.DailyBonus > 0 {
			result.RewardAmount += cfg.DailyBonus
			result.DailyBonusIncluded = true
		}
	}
	a.CoinsEarnedToday += result.RewardAmount
	return result, nil
}

// ProgressPercent is the share of the accrual window already covered
func (a *ActivityAccrual) ProgressPercent(cfg RewardConfig) float64 {
	if cfg.MinutesRequired <= 0 {
		return 0
	}
	return float64(a.MinutesTowardsNextReward) / float64(cfg.MinutesRequired) * 100
}

// ActivityProgress is returned by TrackActivity
type ActivityProgress struct {
	ProgressPercent          float64 `json:"progress_percent"`
	RewardsAvailable         int     `json:"rewards_available"`
	MinutesTowardsNextReward int     `json:"minutes_towards_next_reward"`
	Counted                  bool    `json:"counted"`
}

// ActivityStatus is the read-only view of today's accrual
type ActivityStatus struct {
	Day                      string  `json:"day"`
	ProgressPercent          float64 `json:"progress_percent"`
	MinutesTowardsNextReward int     `json:"minutes_towards_next_reward"`
	MinutesRequired          int     `json:"minutes_required"`
	TotalActiveMinutesToday  int     `json:"total_active_minutes_today"`
	RewardsAvailable         int     `json:"rewards_available"`
	RewardsClaimedToday      int     `json:"rewards_claimed_today"`
	MaxDailyRewards          int     `json:"max_daily_rewards"`
	BonusPending             bool    `json:"bonus_pending"`
	CoinsPerReward           int64   `json:"coins_per_reward"`
	DailyBonus               int64   `json:"daily_bonus"`
}

// BuildActivityStatus projects an accrual row
func BuildActivityStatus(a *ActivityAccrual, cfg RewardConfig) *ActivityStatus {
	return &ActivityStatus{
		Day:                      a.Day.Format(time.DateOnly),
		ProgressPercent:          a.ProgressPercent(cfg),
		MinutesTowardsNextReward: a.MinutesTowardsNextReward,
		MinutesRequired:          cfg.MinutesRequired,
		TotalActiveMinutesToday:  a.TotalActiveMinutesToday,
		RewardsAvailable:         a.RewardsAvailable,
		RewardsClaimedToday:      a.RewardsClaimedToday,
		MaxDailyRewards:          cfg.MaxDailyRewards,
		BonusPending:             a.FirstClaimOfDay,
		CoinsPerReward:           cfg.CoinsPerReward,
		DailyBonus:               cfg.DailyBonus,
	}
}

// DaySummary is one day of the activity history
type DaySummary struct {
	Day            string `json:"day"`
	ActiveMinutes  int    `json:"active_minutes"`
	RewardsClaimed int    `json:"rewards_claimed"`
	CoinsEarned    int64  `json:"coins_earned"`
}

// DailySummary covers the recent activity window
type DailySummary struct {
	Days        []DaySummary `json:"days"`
	Streak      int          `json:"streak"`
	EarnedToday int64        `json:"earned_today"`
}

// BuildDailySummary fills a window of `days` days ending at today. Days
// without a row appear with zero counters.
func BuildDailySummary(rows []*ActivityAccrual, today time.Time, days int) *DailySummary {
	byDay := make(map[string]*ActivityAccrual, len(rows))
	for _, r := range rows {
		byDay[r.Day.Format(time.DateOnly)] = r
	}

	summary := &DailySummary{Days: make([]DaySummary, 0, days)}
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(time.DateOnly)
		d := DaySummary{Day: key}
		if r, ok := byDay[key]; ok {
			d.ActiveMinutes = r.TotalActiveMinutesToday
			d.RewardsClaimed = r.RewardsClaimedToday
			d.CoinsEarned = r.CoinsEarnedToday
		}
		summary.Days = append(summary.Days, d)
	}

	if r, ok := byDay[today.Format(time.DateOnly)]; ok {
		summary.EarnedToday = r.CoinsEarnedToday
	}

	// A streak survives a today with no claims yet
	start := 0
	if r, ok := byDay[today.Format(time.DateOnly)]; !ok || r.RewardsClaimedToday == 0 {
		start = 1
	}
	for i := start; i < days; i++ {
		r, ok := byDay[today.AddDate(0, 0, -i).Format(time.DateOnly)]
		if !ok || r.RewardsClaimedToday == 0 {
			break
		}
		summary.Streak++
	}
	return summary
}
