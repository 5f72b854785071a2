package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"rewardledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDelivery checks the flow from TransactionalBus to the main Bus
func TestEventDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan LedgerEntryAppliedEvent, 1)
	mainBus.Subscribe(EventTypeLedgerEntryApplied, func(ctx context.Context, event Event) {
		if e, ok := event.(LedgerEntryAppliedEvent); ok {
			received <- e
		} else {
			t.Errorf("expected LedgerEntryAppliedEvent, got %T", event)
		}
	})

	sent := LedgerEntryAppliedEvent{
		EntryID:       "e-1",
		AccountID:     "acct-1",
		Kind:          models.EntryKindDeposit,
		CurrencyField: models.CurrencyCoins,
		Amount:        500,
		BalanceAfter:  1500,
		Status:        models.EntryStatusCompleted,
		CorrelationID: "c-1",
	}
	require.NoError(t, transactionalBus.Publish(sent))
	assert.Equal(t, 1, transactionalBus.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, transactionalBus.Flush(ctx))
	// handlers must not observe the caller's cancellation
	cancel()
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not received within timeout")
	}
}

func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	seen := make(map[EventType]int)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		seen[event.Type()]++
		mu.Unlock()
	})

	_ = transactionalBus.Publish(CharitySkimmedEvent{AccountID: "a", Amount: 20, SourceAmount: 1000})
	_ = transactionalBus.Publish(RewardClaimedEvent{AccountID: "a", RewardAmount: 250, DailyBonusIncluded: true})
	_ = transactionalBus.Publish(VipExpiredEvent{AccountID: "a", Level: 2, Reason: "insufficient_funds"})

	require.NoError(t, transactionalBus.Flush(context.Background()))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all events were delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen[EventTypeCharitySkimmed])
	assert.Equal(t, 1, seen[EventTypeRewardClaimed])
	assert.Equal(t, 1, seen[EventTypeVipExpired])
}

func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeVipSubscribed, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	_ = transactionalBus.Publish(VipSubscribedEvent{AccountID: "a", Level: 1, Fee: 99})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-eventReceived:
		t.Fatal("event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	delivered := make(chan struct{}, 1)
	bus.Subscribe(EventTypeActivityTick, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeActivityTick, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	bus.Emit(context.Background(), ActivityTickEvent{AccountID: "a", Counted: true})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler did not run")
	}
}
