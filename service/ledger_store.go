package service

import (
	"context"
	"fmt"

	"rewardledger/events"
	"rewardledger/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EntryRequest describes one signed change to one wallet counter
type EntryRequest struct {
	AccountID     string
	Kind          models.EntryKind
	CurrencyField models.CurrencyField
	Amount        int64
	CorrelationID uuid.UUID
	Status        models.EntryStatus
	Description   string
	Metadata      map[string]any
}

// AppliedEntry is the outcome of ApplyEntry
type AppliedEntry struct {
	Wallet *models.Wallet
	Entry  *models.LedgerEntry
	Skim   int64
}

// LedgerStore is the only writer of wallet counters and ledger entries.
// It must run inside a unit of work that holds the account's lock.
type LedgerStore struct {
	accounts        AccountRepository
	entries         LedgerEntryRepository
	charity         CharityPoolRepository
	publisher       EventPublisher
	skimBasisPoints int64
	clock           Clock
	pendingSkims    []pendingSkim
}

type pendingSkim struct {
	entry        *models.LedgerEntry
	sourceAmount int64
}

// NewLedgerStore binds a ledger store to a started unit of work
func NewLedgerStore(uow UnitOfWork, skimBasisPoints int64, clock Clock) *LedgerStore {
	return &LedgerStore{
		accounts:        uow.AccountRepository(),
		entries:         uow.LedgerEntryRepository(),
		charity:         uow.CharityPoolRepository(),
		publisher:       uow.EventBus(),
		skimBasisPoints: skimBasisPoints,
		clock:           clock,
	}
}

// ApplyEntry appends one entry and updates one wallet counter atomically.
// Deposits and withdrawals also queue a linked charity_skim entry under the
// same correlation id; FlushSkims writes it and credits the pool.
func (s *LedgerStore) ApplyEntry(ctx context.Context, req EntryRequest) (*AppliedEntry, error) {
	if !req.CurrencyField.IsWalletField() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidCurrencyField, req.CurrencyField)
	}
	if req.Kind == models.EntryKindCharitySkim {
		return nil, fmt.Errorf("%w: charity skims are derived, not applied", models.ErrInvalidAmount)
	}
	if err := req.Kind.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.CorrelationID == uuid.Nil {
		req.CorrelationID = uuid.New()
	}
	if req.Status == "" {
		req.Status = models.EntryStatusCompleted
	}

	wallet, err := s.accounts.ApplyDelta(ctx, req.AccountID, req.CurrencyField, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s for account %s: %w", req.CurrencyField, req.AccountID, err)
	}
	if wallet == nil {
		if req.Amount < 0 {
			return nil, models.ErrInsufficientFunds
		}
		return nil, models.ErrAccountNotFound
	}

	now := s.clock.Now()
	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     req.AccountID,
		Kind:          req.Kind,
		CurrencyField: req.CurrencyField,
		Amount:        req.Amount,
		BalanceAfter:  wallet.Balance(req.CurrencyField),
		Status:        req.Status,
		CorrelationID: req.CorrelationID,
		Description:   req.Description,
		Metadata:      req.Metadata,
		CreatedAt:     now,
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":     entry.AccountID,
		"kind":          entry.Kind,
		"currencyField": entry.CurrencyField,
		"amount":        entry.Amount,
		"balanceAfter":  entry.BalanceAfter,
		"correlationID": entry.CorrelationID,
	}).Debug("Applied ledger entry")

	s.publish(events.LedgerEntryAppliedEvent{
		EntryID:       entry.ID.String(),
		AccountID:     entry.AccountID,
		Kind:          entry.Kind,
		CurrencyField: entry.CurrencyField,
		Amount:        entry.Amount,
		BalanceAfter:  entry.BalanceAfter,
		Status:        entry.Status,
		CorrelationID: entry.CorrelationID.String(),
		OccurredAt:    now,
	})

	applied := &AppliedEntry{Wallet: wallet, Entry: entry}
	if req.Kind.Qualifies() {
		applied.Skim = s.skim(entry)
	}
	return applied, nil
}

// skim queues the linked charity_skim entry for a qualifying entry. The pool
// is credited by FlushSkims at the end of the unit of work.
func (s *LedgerStore) skim(parent *models.LedgerEntry) int64 {
	amount := models.SkimAmount(parent.Amount, s.skimBasisPoints)
	if amount == 0 {
		return 0
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     parent.AccountID,
		Kind:          models.EntryKindCharitySkim,
		CurrencyField: models.CurrencyCharityPool,
		Amount:        amount,
		Status:        models.EntryStatusCompleted,
		CorrelationID: parent.CorrelationID,
		Description:   fmt.Sprintf("Charity skim on %s", parent.Kind),
		Metadata: map[string]any{
			"source_entry_id": parent.ID.String(),
			"source_amount":   parent.Amount,
			"basis_points":    s.skimBasisPoints,
		},
		CreatedAt: parent.CreatedAt,
	}
	s.pendingSkims = append(s.pendingSkims, pendingSkim{entry: entry, sourceAmount: parent.Amount})
	return amount
}

// PendingSkims is the number of skims not yet credited to the pool
func (s *LedgerStore) PendingSkims() int {
	return len(s.pendingSkims)
}

// FlushSkims credits the charity pool and appends every queued skim entry.
// It must be the last write before commit: the shard row lock is shared
// by every account hashed to that shard and is held until commit. Each skim
// entry's balance_after carries the shard total it produced.
func (s *LedgerStore) FlushSkims(ctx context.Context) error {
	for len(s.pendingSkims) > 0 {
		pending := s.pendingSkims[0]
		entry := pending.entry
		shardTotal, err := s.charity.Add(ctx, models.CharityShard(entry.AccountID), entry.Amount)
		if err != nil {
			return fmt.Errorf("failed to credit charity pool: %w", err)
		}
		entry.BalanceAfter = shardTotal
		if err := s.entries.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append charity skim entry: %w", err)
		}
		s.pendingSkims = s.pendingSkims[1:]

		s.publish(events.CharitySkimmedEvent{
			AccountID:     entry.AccountID,
			Amount:        entry.Amount,
			SourceAmount:  pending.sourceAmount,
			CorrelationID: entry.CorrelationID.String(),
			OccurredAt:    entry.CreatedAt,
		})
	}
	return nil
}

func (s *LedgerStore) publish(event events.Event) {
	if err := s.publisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish event")
	}
}
