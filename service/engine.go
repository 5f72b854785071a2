package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"rewardledger/models"

	log "github.com/sirupsen/logrus"
)

// EngineConfig carries the static tables and limits the engine runs with
type EngineConfig struct {
	Levels                 models.VipLevelTable
	Rewards                models.RewardConfig
	Limits                 ProcessorLimits
	CharitySkimBasisPoints int64
	SubscriptionPeriod     time.Duration
}

// Engine is the public face of the ledger and rewards engine. Every mutating
// operation holds the account's process lock and its wallet row lock for the
// length of one database transaction.
type Engine struct {
	uowFactory UnitOfWorkFactory
	cfg        EngineConfig
	clock      Clock
	locks      *AccountLocks
}

func NewEngine(uowFactory UnitOfWorkFactory, cfg EngineConfig, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		uowFactory: uowFactory,
		cfg:        cfg,
		clock:      clock,
		locks:      NewAccountLocks(),
	}
}

// session wires the components to one unit of work
type session struct {
	uow       UnitOfWork
	ledger    *LedgerStore
	processor *TransactionProcessor
	vip       *VipManager
	activity  *ActivityTracker
	wallet    *models.Wallet
}

func (e *Engine) newSession(uow UnitOfWork) *session {
	ledger := NewLedgerStore(uow, e.cfg.CharitySkimBasisPoints, e.clock)
	processor := NewTransactionProcessor(ledger, e.cfg.Limits)
	return &session{
		uow:       uow,
		ledger:    ledger,
		processor: processor,
		vip:       NewVipManager(uow, processor, e.cfg.Levels, e.cfg.SubscriptionPeriod, e.clock),
		activity:  NewActivityTracker(uow, processor, e.cfg.Rewards, e.clock),
	}
}

// ensureAccount creates the wallet and level 0 subscription when missing
func (e *Engine) ensureAccount(ctx context.Context, s *session, accountID, timezone string) error {
	created, err := s.uow.AccountRepository().Create(ctx, accountID, timezone)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if _, err := s.vip.Ensure(ctx, accountID); err != nil {
		return err
	}
	if created {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"timezone":  timezone,
		}).Info("Opened account")
	}
	return nil
}

// withAccount runs fn with the account locked and committed on success.
// create opens the account first when it does not exist yet.
func (e *Engine) withAccount(ctx context.Context, accountID string, create bool, fn func(s *session) error) error {
	if accountID == "" {
		return fmt.Errorf("%w: empty account id", models.ErrAccountNotFound)
	}

	unlock := e.locks.Lock(accountID)
	defer unlock()

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	s := e.newSession(uow)
	if create {
		if err := e.ensureAccount(ctx, s, accountID, ""); err != nil {
			return err
		}
	}

	wallet, err := uow.AccountRepository().GetForUpdate(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if wallet == nil {
		return models.ErrAccountNotFound
	}
	s.wallet = wallet

	if err := fn(s); err != nil {
		return err
	}
	if err := s.ledger.FlushSkims(ctx); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withAccounts locks every account in sorted order for a multi-account operation
func (e *Engine) withAccounts(ctx context.Context, accountIDs []string, fn func(s *session, wallets map[string]*models.Wallet) error) error {
	unlock := e.locks.LockAll(accountIDs...)
	defer unlock()

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	s := e.newSession(uow)
	wallets := make(map[string]*models.Wallet, len(accountIDs))
	for _, id := range sortedUnique(accountIDs) {
		wallet, err := uow.AccountRepository().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		if wallet == nil {
			return fmt.Errorf("%w: %s", models.ErrAccountNotFound, id)
		}
		wallets[id] = wallet
	}

	if err := fn(s, wallets); err != nil {
		return err
	}
	if err := s.ledger.FlushSkims(ctx); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// view runs a read-only fn without taking any lock. Nothing is committed.
func (e *Engine) view(ctx context.Context, accountID string, fn func(s *session) error) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	s := e.newSession(uow)
	if accountID != "" {
		wallet, err := uow.AccountRepository().GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if wallet == nil {
			return models.ErrAccountNotFound
		}
		s.wallet = wallet
	}
	return fn(s)
}

// OpenAccount creates the account if needed and returns its wallet.
// An empty timezone means UTC.
func (e *Engine) OpenAccount(ctx context.Context, accountID, timezone string) (*models.Wallet, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimezone, timezone)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: empty account id", models.ErrAccountNotFound)
	}

	unlock := e.locks.Lock(accountID)
	defer unlock()

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	s := e.newSession(uow)
	if err := e.ensureAccount(ctx, s, accountID, timezone); err != nil {
		return nil, err
	}
	wallet, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if wallet == nil {
		return nil, models.ErrAccountNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return wallet, nil
}

// GetWallet returns the four balances of an account
func (e *Engine) GetWallet(ctx context.Context, accountID string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := e.view(ctx, accountID, func(s *session) error {
		wallet = s.wallet
		return nil
	})
	return wallet, err
}

// Deposit credits coins and counts toward VIP eligibility
func (e *Engine) Deposit(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	var result *models.TransactionResult
	err := e.withAccount(ctx, accountID, true, func(s *session) error {
		var err error
		if result, err = s.processor.Deposit(ctx, accountID, amount); err != nil {
			return err
		}
		return s.vip.Recharge(ctx, accountID, amount)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw debits withdrawable earnings into a pending withdrawal
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	var result *models.TransactionResult
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		result, err = s.processor.Withdraw(ctx, s.wallet, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer moves amount between two counters of one account
func (e *Engine) Transfer(ctx context.Context, accountID string, from, to models.CurrencyField, amount int64) (*models.TransactionResult, error) {
	var result *models.TransactionResult
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		result, err = s.processor.Transfer(ctx, accountID, from, to, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TransferToAccount moves coins between two existing accounts
func (e *Engine) TransferToAccount(ctx context.Context, fromID, toID string, amount int64) (*models.TransferResult, error) {
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("%w: empty account id", models.ErrAccountNotFound)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", models.ErrInvalidAmount)
	}

	var result *models.TransferResult
	err := e.withAccounts(ctx, []string{fromID, toID}, func(s *session, _ map[string]*models.Wallet) error {
		var err error
		result, err = s.processor.TransferBetweenAccounts(ctx, fromID, toID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConvertStars exchanges stars for coins minus the conversion fee
func (e *Engine) ConvertStars(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	var result *models.TransactionResult
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		result, err = s.processor.ConvertStars(ctx, accountID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactions pages the account's ledger, newest first
func (e *Engine) GetTransactions(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := e.view(ctx, accountID, func(s *session) error {
		var err error
		entries, err = s.uow.LedgerEntryRepository().ListByAccount(ctx, accountID, filter.Normalize())
		if err != nil {
			return fmt.Errorf("failed to list ledger entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Reconcile replays the account's ledger and compares it with the wallet
func (e *Engine) Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error) {
	var rec *models.Reconciliation
	err := e.view(ctx, accountID, func(s *session) error {
		entries, err := s.uow.LedgerEntryRepository().ListAllByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list ledger entries: %w", err)
		}
		rec = &models.Reconciliation{
			AccountID:  accountID,
			Stored:     s.wallet.Balances(),
			EntryCount: len(entries),
		}
		replayed, err := models.ReplayBalances(entries)
		if err != nil {
			log.WithError(err).WithField("accountID", accountID).Warn("Ledger replay failed")
			return nil
		}
		rec.Replayed = replayed
		rec.Consistent = replayed == rec.Stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.Consistent {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"stored":    rec.Stored,
			"replayed":  rec.Replayed,
		}).Error("Wallet does not match its ledger")
	}
	return rec, nil
}

// GetVipLevels returns the static level table
func (e *Engine) GetVipLevels() models.VipLevelTable {
	return e.cfg.Levels
}

func (e *Engine) GetVipStatus(ctx context.Context, accountID string) (*models.VipStatus, error) {
	var status *models.VipStatus
	err := e.view(ctx, accountID, func(s *session) error {
		var err error
		status, err = s.vip.Status(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (e *Engine) Subscribe(ctx context.Context, accountID string, level int) (*models.VipStatus, error) {
	var status *models.VipStatus
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		status, err = s.vip.Subscribe(ctx, accountID, level)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (e *Engine) ToggleAutoRenew(ctx context.Context, accountID string) (*models.VipStatus, error) {
	var status *models.VipStatus
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		status, err = s.vip.ToggleAutoRenew(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (e *Engine) CancelVip(ctx context.Context, accountID string) (*models.VipStatus, error) {
	var status *models.VipStatus
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		status, err = s.vip.Cancel(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// TrackActivity records a heartbeat for the account
func (e *Engine) TrackActivity(ctx context.Context, accountID string) (*models.ActivityProgress, error) {
	var progress *models.ActivityProgress
	err := e.withAccount(ctx, accountID, true, func(s *session) error {
		var err error
		progress, err = s.activity.Tick(ctx, s.wallet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// ClaimReward consumes one available activity reward
func (e *Engine) ClaimReward(ctx context.Context, accountID string) (*models.ClaimResult, error) {
	var result *models.ClaimResult
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		result, err = s.activity.Claim(ctx, s.wallet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) GetActivityStatus(ctx context.Context, accountID string) (*models.ActivityStatus, error) {
	var status *models.ActivityStatus
	err := e.view(ctx, accountID, func(s *session) error {
		var err error
		status, err = s.activity.Status(ctx, s.wallet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (e *Engine) GetDailySummary(ctx context.Context, accountID string) (*models.DailySummary, error) {
	var summary *models.DailySummary
	err := e.view(ctx, accountID, func(s *session) error {
		var err error
		summary, err = s.activity.Summary(ctx, s.wallet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// GetCharityStats reports the pool next to the sum of skim entries
func (e *Engine) GetCharityStats(ctx context.Context) (*models.CharityStats, error) {
	var stats *models.CharityStats
	err := e.view(ctx, "", func(s *session) error {
		pool, err := s.uow.CharityPoolRepository().Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to get charity pool: %w", err)
		}
		ledgerTotal, err := s.uow.LedgerEntryRepository().SumCharitySkims(ctx)
		if err != nil {
			return fmt.Errorf("failed to sum charity skims: %w", err)
		}
		stats = &models.CharityStats{
			Total:             pool.Total,
			Contributions:     pool.Contributions,
			SkimBasisPoints:   e.cfg.CharitySkimBasisPoints,
			LedgerSkimTotal:   ledgerTotal,
			MatchesLedgerSkim: pool.Total == ledgerTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DueRenewals lists accounts whose active window has ended
func (e *Engine) DueRenewals(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := e.view(ctx, "", func(s *session) error {
		var err error
		ids, err = s.uow.VipSubscriptionRepository().ListDueForRenewal(ctx, e.clock.Now(), limit)
		if err != nil {
			return fmt.Errorf("failed to list due renewals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RenewSubscription renews or expires one due subscription
func (e *Engine) RenewSubscription(ctx context.Context, accountID string) (models.RenewalOutcome, error) {
	var outcome models.RenewalOutcome
	err := e.withAccount(ctx, accountID, false, func(s *session) error {
		var err error
		outcome, err = s.vip.Renew(ctx, accountID)
		return err
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// DeferRenewal keeps a subscription that cannot be renewed off the due list
// for the cooldown
func (e *Engine) DeferRenewal(ctx context.Context, accountID string, cooldown time.Duration) error {
	return e.withAccount(ctx, accountID, false, func(s *session) error {
		return s.uow.VipSubscriptionRepository().DeferRenewal(ctx, accountID, e.clock.Now().Add(cooldown))
	})
}

func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
