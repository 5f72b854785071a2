package models

import (
	"fmt"
	"math"
	"time"
)

// VipBenefits are read-only perks of a level. Applying them is up to the
// feature that consumes them.
type VipBenefits struct {
	CharityBonusPercent      int  `yaml:"charity_bonus_percent" json:"charity_bonus_percent"`
	FreeSpinsDaily           int  `yaml:"free_spins_daily" json:"free_spins_daily"`
	EducationDiscountPercent int  `yaml:"education_discount_percent" json:"education_discount_percent"`
	PrioritySupport          bool `yaml:"priority_support" json:"priority_support"`
	WithdrawalPriority       bool `yaml:"withdrawal_priority" json:"withdrawal_priority"`
	ExclusiveGames           bool `yaml:"exclusive_games" json:"exclusive_games"`
}

// VipLevel is one row of the static level table
type VipLevel struct {
	Level               int         `yaml:"level" json:"level"`
	Name                string      `yaml:"name" json:"name"`
	RechargeRequirement int64       `yaml:"recharge_requirement" json:"recharge_requirement"`
	MonthlyFee          int64       `yaml:"monthly_fee" json:"monthly_fee"`
	Benefits            VipBenefits `yaml:"benefits" json:"benefits"`
}

// VipLevelTable is ordered by level, starting at 0
type VipLevelTable []VipLevel

// Validate checks the table shape: level 0 first, contiguous levels,
// non-decreasing recharge requirements.
func (t VipLevelTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("vip level table is empty")
	}
	for i, lvl := range t {
		if lvl.Level != i {
			return fmt.Errorf("vip level at position %d has level %d", i, lvl.Level)
		}
		if lvl.RechargeRequirement < 0 || lvl.MonthlyFee < 0 {
			return fmt.Errorf("vip level %d has negative requirement or fee", lvl.Level)
		}
		if i > 0 && lvl.RechargeRequirement < t[i-1].RechargeRequirement {
			return fmt.Errorf("vip level %d requirement below level %d", lvl.Level, i-1)
		}
	}
	if t[0].RechargeRequirement != 0 {
		return fmt.Errorf("vip level 0 must have no recharge requirement")
	}
	return nil
}

// Get returns the level definition
func (t VipLevelTable) Get(level int) (VipLevel, bool) {
	if level < 0 || level >= len(t) {
		return VipLevel{}, false
	}
	return t[level], true
}

// EligibleLevel is the highest level whose requirement is covered by totalRecharged
func (t VipLevelTable) EligibleLevel(totalRecharged int64) int {
	eligible := 0
	for _, lvl := range t {
		if lvl.RechargeRequirement <= totalRecharged {
			eligible = lvl.Level
		}
	}
	return eligible
}

// VipState is the lifecycle position of a subscription
type VipState string

const (
	VipStateBasic   VipState = "basic"
	VipStateActive  VipState = "active"
	VipStateExpired VipState = "expired"
)

// VipSubscription is the per-account VIP row
type VipSubscription struct {
	AccountID         string     `db:"account_id"`
	Level             int        `db:"level"`
	Status            VipState   `db:"status"`
	SubscriptionStart *time.Time `db:"subscription_start"`
	SubscriptionEnd   *time.Time `db:"subscription_end"`
	TotalRecharged    int64      `db:"total_recharged"`
	AutoRenew         bool       `db:"auto_renew"`
	RenewalCount      int        `db:"renewal_count"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// NewVipSubscription returns the level 0 row created with an account
func NewVipSubscription(accountID string) *VipSubscription {
	return &VipSubscription{
		AccountID: accountID,
		Status:    VipStateBasic,
		AutoRenew: true,
	}
}

// State derives the lifecycle state at now. An active row whose window has
// passed reads as expired even before the renewal sweep visits it.
func (s *VipSubscription) State(now time.Time) VipState {
	if s.Level == 0 || s.SubscriptionEnd == nil {
		return VipStateBasic
	}
	if s.Status == VipStateActive && !now.After(*s.SubscriptionEnd) {
		return VipStateActive
	}
	return VipStateExpired
}

// IsActive reports whether benefits apply at now
func (s *VipSubscription) IsActive(now time.Time) bool {
	return s.State(now) == VipStateActive
}

// DaysRemaining is the whole number of days left in the window
func (s *VipSubscription) DaysRemaining(now time.Time) int {
	if !s.IsActive(now) {
		return 0
	}
	days := math.Floor(s.SubscriptionEnd.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// Recharge grows the lifetime recharge total
func (s *VipSubscription) Recharge(amount int64) {
	if amount > 0 {
		s.TotalRecharged += amount
	}
}

// Activate starts a fresh window at level
func (s *VipSubscription) Activate(level int, now time.Time, period time.Duration) {
	start := now
	end := now.Add(period)
	s.Level = level
	s.Status = VipStateActive
	s.SubscriptionStart = &start
	s.SubscriptionEnd = &end
}

// Extend moves the window end forward by one period. When that end would
// still lie at or before now (the window lapsed by more than a period), the
// paid period starts at now instead, so one fee always buys a usable window.
func (s *VipSubscription) Extend(period time.Duration, now time.Time) {
	end := s.SubscriptionEnd.Add(period)
	if !end.After(now) {
		start := now
		end = now.Add(period)
		s.SubscriptionStart = &start
	}
	s.SubscriptionEnd = &end
	s.Status = VipStateActive
	s.RenewalCount++
}

// Expire keeps the level for history but ends benefits
func (s *VipSubscription) Expire() {
	s.Status = VipStateExpired
}

// DueForRenewal reports whether the sweep should act on this row
func (s *VipSubscription) DueForRenewal(now time.Time) bool {
	return s.Status == VipStateActive && s.SubscriptionEnd != nil && !now.Before(*s.SubscriptionEnd)
}

// VipStatus is the caller-facing view of a subscription
type VipStatus struct {
	Level           int         `json:"level"`
	LevelName       string      `json:"level_name"`
	State           VipState    `json:"state"`
	IsActive        bool        `json:"is_active"`
	EligibleLevel   int         `json:"eligible_level"`
	DaysRemaining   int         `json:"days_remaining"`
	TotalRecharged  int64       `json:"total_recharged"`
	AutoRenew       bool        `json:"auto_renew"`
	SubscriptionEnd *time.Time  `json:"subscription_end,omitempty"`
	Benefits        VipBenefits `json:"benefits"`
}

// BuildVipStatus projects a subscription against the level table
func BuildVipStatus(s *VipSubscription, levels VipLevelTable, now time.Time) *VipStatus {
	status := &VipStatus{
		Level:           s.Level,
		State:           s.State(now),
		IsActive:        s.IsActive(now),
		EligibleLevel:   levels.EligibleLevel(s.TotalRecharged),
		DaysRemaining:   s.DaysRemaining(now),
		TotalRecharged:  s.TotalRecharged,
		AutoRenew:       s.AutoRenew,
		SubscriptionEnd: s.SubscriptionEnd,
	}
	if lvl, ok := levels.Get(s.Level); ok {
		status.LevelName = lvl.Name
	}
	// Expired levels are treated as basic for benefits
	if status.IsActive {
		if lvl, ok := levels.Get(s.Level); ok {
			status.Benefits = lvl.Benefits
		}
	} else if basic, ok := levels.Get(0); ok {
		status.Benefits = basic.Benefits
	}
	return status
}

// RenewalOutcome is the result of one renewal attempt
type RenewalOutcome string

const (
	RenewalRenewed RenewalOutcome = "renewed"
	RenewalExpired RenewalOutcome = "expired"
	RenewalSkipped RenewalOutcome = "skipped"
)
