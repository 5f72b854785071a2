package observability

// Metric name prefixes
const (
	MetricPrefix = "rewardledger"
)

// Metric names
const (
	// Ledger metrics
	LedgerEntriesTotal  = MetricPrefix + ".ledger.entries_total"
	LedgerVolumeTotal   = MetricPrefix + ".ledger.volume_total"
	CharitySkimmedTotal = MetricPrefix + ".charity.skimmed_total"

	// Activity metrics
	ActivityTicksTotal   = MetricPrefix + ".activity.ticks_total"
	RewardsClaimedTotal  = MetricPrefix + ".activity.rewards_claimed_total"
	RewardCoinsPaidTotal = MetricPrefix + ".activity.reward_coins_total"

	// VIP metrics
	VipTransitionsTotal = MetricPrefix + ".vip.transitions_total"
	RenewalSweepsTotal  = MetricPrefix + ".vip.renewal_sweeps_total"
	RenewalOutcomeTotal = MetricPrefix + ".vip.renewal_outcomes_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelKind          = "kind"
	LabelCurrencyField = "currency_field"
	LabelEventType     = "event_type"
	LabelOutcome       = "outcome"
	LabelCounted       = "counted"
)

// Renewal outcomes reported per sweep
const (
	OutcomeRenewed = "renewed"
	OutcomeExpired = "expired"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)
