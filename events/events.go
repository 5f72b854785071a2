package events

import (
	"context"
	"sync"
	"time"

	"rewardledger/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeLedgerEntryApplied EventType = "ledger_entry_applied"
	EventTypeCharitySkimmed     EventType = "charity_skimmed"
	EventTypeVipSubscribed      EventType = "vip_subscribed"
	EventTypeVipRenewed         EventType = "vip_renewed"
	EventTypeVipExpired         EventType = "vip_expired"
	EventTypeAutoRenewChanged   EventType = "vip_auto_renew_changed"
	EventTypeRewardClaimed      EventType = "reward_claimed"
	EventTypeActivityTick       EventType = "activity_tick"
)

// AllEventTypes lists every event the engine emits
var AllEventTypes = []EventType{
	EventTypeLedgerEntryApplied,
	EventTypeCharitySkimmed,
	EventTypeVipSubscribed,
	EventTypeVipRenewed,
	EventTypeVipExpired,
	EventTypeAutoRenewChanged,
	EventTypeRewardClaimed,
	EventTypeActivityTick,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// LedgerEntryAppliedEvent is emitted for every entry that changes a wallet counter
type LedgerEntryAppliedEvent struct {
	EntryID       string               `json:"entry_id"`
	AccountID     string               `json:"account_id"`
	Kind          models.EntryKind     `json:"kind"`
	CurrencyField models.CurrencyField `json:"currency_field"`
	Amount        int64                `json:"amount"`
	BalanceAfter  int64                `json:"balance_after"`
	Status        models.EntryStatus   `json:"status"`
	CorrelationID string               `json:"correlation_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func (e LedgerEntryAppliedEvent) Type() EventType {
	return EventTypeLedgerEntryApplied
}

// CharitySkimmedEvent is emitted when a qualifying transaction credits the pool
type CharitySkimmedEvent struct {
	AccountID     string    `json:"account_id"`
	Amount        int64     `json:"amount"`
	SourceAmount  int64     `json:"source_amount"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e CharitySkimmedEvent) Type() EventType {
	return EventTypeCharitySkimmed
}

// VipSubscribedEvent is emitted when an account starts a VIP window
type VipSubscribedEvent struct {
	AccountID       string    `json:"account_id"`
	Level           int       `json:"level"`
	Fee             int64     `json:"fee"`
	SubscriptionEnd time.Time `json:"subscription_end"`
}

func (e VipSubscribedEvent) Type() EventType {
	return EventTypeVipSubscribed
}

// VipRenewedEvent is emitted when the sweep extends a window
type VipRenewedEvent struct {
	AccountID       string    `json:"account_id"`
	Level           int       `json:"level"`
	Fee             int64     `json:"fee"`
	SubscriptionEnd time.Time `json:"subscription_end"`
	RenewalCount    int       `json:"renewal_count"`
}

func (e VipRenewedEvent) Type() EventType {
	return EventTypeVipRenewed
}

// VipExpiredEvent is emitted when a window lapses without renewal
type VipExpiredEvent struct {
	AccountID string `json:"account_id"`
	Level     int    `json:"level"`
	Reason    string `json:"reason"`
}

func (e VipExpiredEvent) Type() EventType {
	return EventTypeVipExpired
}

// AutoRenewChangedEvent is emitted by toggle and cancel
type AutoRenewChangedEvent struct {
	AccountID string `json:"account_id"`
	AutoRenew bool   `json:"auto_renew"`
}

func (e AutoRenewChangedEvent) Type() EventType {
	return EventTypeAutoRenewChanged
}

// RewardClaimedEvent is emitted for every successful activity claim
type RewardClaimedEvent struct {
	AccountID          string `json:"account_id"`
	Day                string `json:"day"`
	RewardAmount       int64  `json:"reward_amount"`
	DailyBonusIncluded bool   `json:"daily_bonus_included"`
	ClaimedToday       int    `json:"claimed_today"`
}

func (e RewardClaimedEvent) Type() EventType {
	return EventTypeRewardClaimed
}

// ActivityTickEvent is emitted for every heartbeat, counted or not
type ActivityTickEvent struct {
	AccountID string `json:"account_id"`
	Counted   bool   `json:"counted"`
	Granted   bool   `json:"granted"`
}

func (e ActivityTickEvent) Type() EventType {
	return EventTypeActivityTick
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every event type the engine emits
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers.
// Handlers run on their own goroutines; a panicking handler is logged and dropped.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes e until Flush
func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Pending returns the number of buffered events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events to main event bus")

	// Handlers must outlive the request that produced the events
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	log.WithField("discardedEventCount", len(b.pending)).Debug("Discarding pending events")
	b.pending = nil
}
