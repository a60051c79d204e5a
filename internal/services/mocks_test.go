package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/models"
)

// newTestCache builds a tiered cache with only the local tier, which is all
// the service tests need.
func newTestCache() *cache.Tiered {
	return cache.NewTiered(cache.NewLocal(), nil)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetByGUID(ctx context.Context, guid string) (*models.Account, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockDirectory) GetByIBAN(ctx context.Context, iban string) (*models.Account, error) {
	args := m.Called(ctx, iban)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockDirectory) MutateBalance(ctx context.Context, guid string, delta decimal.Decimal) (*models.Account, error) {
	args := m.Called(ctx, guid, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockDirectory) MutateBalanceOutbox(ctx context.Context, guid string, delta decimal.Decimal, movement *models.Movement) (*models.Account, error) {
	args := m.Called(ctx, guid, delta, movement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockDirectory) MarkOutboxDispatched(ctx context.Context, movementGUID string) {
	m.Called(ctx, movementGUID)
}

func (m *MockDirectory) ResolveClientByGUID(ctx context.Context, guid string) (*models.Client, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockDirectory) ResolveClientByEmail(ctx context.Context, email string) (*models.Client, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockDirectory) ResolveCardByNumber(ctx context.Context, number string) (*models.Card, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockDirectory) ResolveAccountByCardGUID(ctx context.Context, cardGUID string) (*models.Account, error) {
	args := m.Called(ctx, cardGUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockMovementRecorder struct {
	mock.Mock
}

func (m *MockMovementRecorder) Append(ctx context.Context, movement *models.Movement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockMovementRecorder) GetByGUID(ctx context.Context, guid string) (*models.Movement, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Movement), args.Error(1)
}

func (m *MockMovementRecorder) Replace(ctx context.Context, guid string, movement *models.Movement) error {
	args := m.Called(ctx, guid, movement)
	return args.Error(0)
}

type MockMovementStore struct {
	mock.Mock
}

func (m *MockMovementStore) Insert(ctx context.Context, movement *models.Movement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockMovementStore) FindByGUID(ctx context.Context, guid string) (*models.Movement, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Movement), args.Error(1)
}

func (m *MockMovementStore) FindByClient(ctx context.Context, clientGUID string) ([]models.Movement, error) {
	args := m.Called(ctx, clientGUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Movement), args.Error(1)
}

func (m *MockMovementStore) FindAll(ctx context.Context) ([]models.Movement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Movement), args.Error(1)
}

func (m *MockMovementStore) Replace(ctx context.Context, guid string, movement *models.Movement) error {
	args := m.Called(ctx, guid, movement)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Push(ctx context.Context, principalGUID, message, kind string, at time.Time) error {
	args := m.Called(ctx, principalGUID, message, kind, at)
	return args.Error(0)
}

type MockSettlement struct {
	mock.Mock
}

func (m *MockSettlement) SendCreditTransfer(ctx context.Context, originIBAN, destinationIBAN, beneficiary string, amount decimal.Decimal) error {
	args := m.Called(ctx, originIBAN, destinationIBAN, beneficiary, amount)
	return args.Error(0)
}

// amountEq builds a testify matcher comparing decimals by value.
func amountEq(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}
