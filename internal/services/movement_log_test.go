package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bancoatlas/backoffice/internal/models"
)

func payrollMovement(clientGUID string) *models.Movement {
	m := models.NewPayrollMovement(clientGUID, models.PayrollIncome{
		Company:    "Acme SL",
		ClientIBAN: "ES1000000000000000000001",
		Amount:     decimal.NewFromInt(1500),
	})
	return &m
}

func TestMovementLog_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts and caches the movement", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		movement := payrollMovement("client-1")
		store.On("Insert", mock.Anything, movement).Return(nil)

		assert.NoError(t, log.Append(ctx, movement))

		// The read afterwards must be served from the cache.
		got, err := log.GetByGUID(ctx, movement.GUID)
		assert.NoError(t, err)
		assert.Equal(t, movement.GUID, got.GUID)
		store.AssertNotCalled(t, "FindByGUID", mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed movement", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		malformed := payrollMovement("client-1")
		malformed.Kind = models.MovementTransfer

		assert.ErrorIs(t, log.Append(ctx, malformed), models.ErrMalformedMovement)
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})
}

func TestMovementLog_GetByGUID(t *testing.T) {
	ctx := context.Background()

	t.Run("reads through the store on a miss", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		movement := payrollMovement("client-1")
		store.On("FindByGUID", mock.Anything, movement.GUID).Return(movement, nil).Once()

		got, err := log.GetByGUID(ctx, movement.GUID)
		assert.NoError(t, err)
		assert.Equal(t, movement.GUID, got.GUID)

		// Second read is a cache hit; Once above would fail otherwise.
		got, err = log.GetByGUID(ctx, movement.GUID)
		assert.NoError(t, err)
		assert.Equal(t, movement.GUID, got.GUID)
		store.AssertExpectations(t)
	})

	t.Run("absence is not cached", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		store.On("FindByGUID", mock.Anything, "missing").Return(nil, nil).Twice()

		got, err := log.GetByGUID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)

		got, err = log.GetByGUID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
		store.AssertExpectations(t)
	})
}

func TestMovementLog_Replace(t *testing.T) {
	ctx := context.Background()

	transferLeg := func(revoked bool) *models.Movement {
		m := models.NewTransferMovement("client-1", models.TransferLeg{
			OriginIBAN:      "ES1000000000000000000001",
			DestinationIBAN: "ES2000000000000000000002",
			Beneficiary:     "Cliente Y",
			Amount:          decimal.NewFromInt(200),
			Revoked:         revoked,
		})
		return &m
	}

	t.Run("replaces the record and refreshes the cache", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		existing := transferLeg(false)
		updated := *existing
		leg := *existing.Transfer
		leg.Revoked = true
		updated.Transfer = &leg

		store.On("FindByGUID", mock.Anything, existing.GUID).Return(existing, nil).Once()
		store.On("Replace", mock.Anything, existing.GUID, &updated).Return(nil)

		assert.NoError(t, log.Replace(ctx, existing.GUID, &updated))

		// The cache now holds the revoked version.
		got, err := log.GetByGUID(ctx, existing.GUID)
		assert.NoError(t, err)
		assert.True(t, got.Transfer.Revoked)
		store.AssertExpectations(t)
	})

	t.Run("revoked flag never returns to false", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		existing := transferLeg(true)
		rollback := *existing
		leg := *existing.Transfer
		leg.Revoked = false
		rollback.Transfer = &leg

		store.On("FindByGUID", mock.Anything, existing.GUID).Return(existing, nil)

		assert.ErrorIs(t, log.Replace(ctx, existing.GUID, &rollback), ErrAlreadyRevoked)
		store.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stored record missing its transfer payload", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		// A corrupt stored document can carry the transfer tag with no
		// payload; Replace must not trip over it.
		replacement := transferLeg(true)
		corrupt := &models.Movement{
			GUID:       replacement.GUID,
			ClientGUID: "client-1",
			Kind:       models.MovementTransfer,
		}
		store.On("FindByGUID", mock.Anything, replacement.GUID).Return(corrupt, nil)
		store.On("Replace", mock.Anything, replacement.GUID, replacement).Return(nil)

		assert.NoError(t, log.Replace(ctx, replacement.GUID, replacement))
		store.AssertExpectations(t)
	})

	t.Run("unknown movement", func(t *testing.T) {
		store := new(MockMovementStore)
		log := NewMovementLog(store, newTestCache())

		replacement := transferLeg(true)
		store.On("FindByGUID", mock.Anything, replacement.GUID).Return(nil, nil)

		assert.ErrorIs(t, log.Replace(ctx, replacement.GUID, replacement), ErrMovementNotFound)
	})
}

func TestMovementLog_Listings(t *testing.T) {
	ctx := context.Background()
	store := new(MockMovementStore)
	log := NewMovementLog(store, newTestCache())

	movements := []models.Movement{*payrollMovement("client-1"), *payrollMovement("client-1")}
	store.On("FindByClient", mock.Anything, "client-1").Return(movements, nil)
	store.On("FindAll", mock.Anything).Return(movements, nil)

	byClient, err := log.GetByClient(ctx, "client-1")
	assert.NoError(t, err)
	assert.Len(t, byClient, 2)

	all, err := log.GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}
