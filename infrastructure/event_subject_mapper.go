package infrastructure

import (
	"fmt"

	"rewardledger/events"
)

// EventSubjectMapper handles mapping between engine events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeLedgerEntryApplied:
		return "ledger.entry.applied"
	case events.EventTypeCharitySkimmed:
		return "charity.skimmed"
	case events.EventTypeVipSubscribed:
		return "vip.subscribed"
	case events.EventTypeVipRenewed:
		return "vip.renewed"
	case events.EventTypeVipExpired:
		return "vip.expired"
	case events.EventTypeAutoRenewChanged:
		return "vip.auto_renew_changed"
	case events.EventTypeRewardClaimed:
		return "activity.reward_claimed"
	case events.EventTypeActivityTick:
		return "activity.tick"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// Forwarded reports whether events of this type leave the process.
// Heartbeats are too chatty for the stream and only feed metrics.
func (m *EventSubjectMapper) Forwarded(eventType events.EventType) bool {
	return eventType != events.EventTypeActivityTick
}

// GetAllSubjects returns every subject the stream must accept
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"ledger.entry.applied",
		"charity.skimmed",
		"vip.*",
		"activity.reward_claimed",
	}
}
