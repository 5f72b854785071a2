package service

import (
	"context"
	"time"

	"rewardledger/events"
	"rewardledger/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, accountID string, timezone string) (bool, error) {
	args := m.Called(ctx, accountID, timezone)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, accountID string) (*models.Wallet, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, accountID string) (*models.Wallet, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, accountID string, field models.CurrencyField, delta int64) (*models.Wallet, error) {
	args := m.Called(ctx, accountID, field, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerEntryRepository) ListByAccount(ctx context.Context, accountID string, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) ListAllByAccount(ctx context.Context, accountID string) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) SumCharitySkims(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCharityPoolRepository is a mock implementation of CharityPoolRepository
type MockCharityPoolRepository struct {
	mock.Mock
}

func (m *MockCharityPoolRepository) Add(ctx context.Context, shard int, amount int64) (int64, error) {
	args := m.Called(ctx, shard, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCharityPoolRepository) Get(ctx context.Context) (*models.CharityPool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CharityPool), args.Error(1)
}

// MockVipSubscriptionRepository is a mock implementation of VipSubscriptionRepository
type MockVipSubscriptionRepository struct {
	mock.Mock
}

func (m *MockVipSubscriptionRepository) Create(ctx context.Context, sub *models.VipSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockVipSubscriptionRepository) GetByAccount(ctx context.Context, accountID string) (*models.VipSubscription, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VipSubscription), args.Error(1)
}

func (m *MockVipSubscriptionRepository) Update(ctx context.Context, sub *models.VipSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockVipSubscriptionRepository) ListDueForRenewal(ctx context.Context, now time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVipSubscriptionRepository) DeferRenewal(ctx context.Context, accountID string, until time.Time) error {
	args := m.Called(ctx, accountID, until)
	return args.Error(0)
}

// MockActivityAccrualRepository is a mock implementation of ActivityAccrualRepository
type MockActivityAccrualRepository struct {
	mock.Mock
}

func (m *MockActivityAccrualRepository) GetLatest(ctx context.Context, accountID string) (*models.ActivityAccrual, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityAccrual), args.Error(1)
}

func (m *MockActivityAccrualRepository) Save(ctx context.Context, accrual *models.ActivityAccrual) error {
	args := m.Called(ctx, accrual)
	return args.Error(0)
}

func (m *MockActivityAccrualRepository) ListSince(ctx context.Context, accountID string, since time.Time) ([]*models.ActivityAccrual, error) {
	args := m.Called(ctx, accountID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActivityAccrual), args.Error(1)
}

// MockEventPublisher records published events without expectations
type MockEventPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

// OfType returns the published events of one type
func (m *MockEventPublisher) OfType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range m.PublishedEvents {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork mocks the transaction calls and hands out preset repositories
type MockUnitOfWork struct {
	mock.Mock

	accounts  AccountRepository
	entries   LedgerEntryRepository
	charity   CharityPoolRepository
	vip       VipSubscriptionRepository
	activity  ActivityAccrualRepository
	publisher EventPublisher
}

// SetRepositories configures the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(
	accounts AccountRepository,
	entries LedgerEntryRepository,
	charity CharityPoolRepository,
	vip VipSubscriptionRepository,
	activity ActivityAccrualRepository,
	publisher EventPublisher,
) {
	m.accounts = accounts
	m.entries = entries
	m.charity = charity
	m.vip = vip
	m.activity = activity
	m.publisher = publisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository                 { return m.accounts }
func (m *MockUnitOfWork) LedgerEntryRepository() LedgerEntryRepository         { return m.entries }
func (m *MockUnitOfWork) CharityPoolRepository() CharityPoolRepository         { return m.charity }
func (m *MockUnitOfWork) VipSubscriptionRepository() VipSubscriptionRepository { return m.vip }
func (m *MockUnitOfWork) ActivityAccrualRepository() ActivityAccrualRepository { return m.activity }
func (m *MockUnitOfWork) EventBus() EventPublisher                             { return m.publisher }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockRenewalEngine is a mock implementation of RenewalEngine
type MockRenewalEngine struct {
	mock.Mock
}

func (m *MockRenewalEngine) DueRenewals(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRenewalEngine) RenewSubscription(ctx context.Context, accountID string) (models.RenewalOutcome, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.RenewalOutcome), args.Error(1)
}

func (m *MockRenewalEngine) DeferRenewal(ctx context.Context, accountID string, cooldown time.Duration) error {
	args := m.Called(ctx, accountID, cooldown)
	return args.Error(0)
}
