package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rewardledger/events"
	"rewardledger/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
	sent chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{sent: make(chan struct{}, 16)}
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, published{subject: subject, data: data})
	r.mu.Unlock()
	r.sent <- struct{}{}
	return nil
}

func TestNATSEventPublisher_Envelope(t *testing.T) {
	rec := newRecordingPublisher()
	p := NewNATSEventPublisher(rec, NewEventSubjectMapper())

	var counted []events.EventType
	p.OnPublished(func(et events.EventType) { counted = append(counted, et) })

	event := events.CharitySkimmedEvent{
		AccountID:     "acct-1",
		Amount:        20,
		SourceAmount:  1000,
		CorrelationID: uuid.NewString(),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "charity.skimmed", rec.msgs[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(rec.msgs[0].data, &envelope))
	assert.Equal(t, "charity_skimmed", envelope.EventType)
	assert.Equal(t, "rewardledger", envelope.SourceService)
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload events.CharitySkimmedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(20), payload.Amount)
	assert.Equal(t, []events.EventType{events.EventTypeCharitySkimmed}, counted)
}

func TestNATSEventPublisher_Errors(t *testing.T) {
	rec := newRecordingPublisher()
	p := NewNATSEventPublisher(rec, NewEventSubjectMapper())

	rec.err = errors.New("nats: no response from stream")
	assert.NoError(t, p.Publish(context.Background(), events.VipExpiredEvent{}))

	rec.err = errors.New("nats: connection closed")
	assert.ErrorContains(t, p.Publish(context.Background(), events.VipExpiredEvent{}), "failed to publish event")
}

func TestNATSEventPublisher_Attach(t *testing.T) {
	rec := newRecordingPublisher()
	p := NewNATSEventPublisher(rec, NewEventSubjectMapper())
	bus := events.NewBus()
	p.Attach(bus)

	bus.Emit(context.Background(), events.ActivityTickEvent{AccountID: "acct-1"})
	bus.Emit(context.Background(), events.LedgerEntryAppliedEvent{
		AccountID: "acct-1",
		Kind:      models.EntryKindDeposit,
		Amount:    100,
	})

	select {
	case <-rec.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("ledger event was not forwarded")
	}
	// give a stray tick forward a chance to show up
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "ledger.entry.applied", rec.msgs[0].subject)
}
