package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bancoatlas/backoffice/internal/models"
)

const selectMandateByGUID = `SELECT id, guid, client_guid, creditor, company_iban, client_iban, amount, periodicity, active, created_at, last_run_at FROM domiciliaciones WHERE guid = \$1`

func mandateRows(guid, clientGUID string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "guid", "client_guid", "creditor", "company_iban", "client_iban", "amount", "periodicity", "active", "created_at", "last_run_at"}).
		AddRow(1, guid, clientGUID, "Iberdrola", "ES5000000000000000000005", "ES1000000000000000000001", "120", "mensual", active, now, now)
}

func TestDomiciliationService_Create(t *testing.T) {
	ctx := context.Background()
	principal := models.Principal{ClientGUID: "client-m", Email: "m@bancoatlas.es"}
	client := &models.Client{ID: 1, GUID: "client-m", Name: "Marta", Email: "m@bancoatlas.es"}

	request := models.CreateDomiciliationRequest{
		Creditor:    "Iberdrola",
		CompanyIBAN: "ES5000000000000000000005",
		ClientIBAN:  "ES1000000000000000000001",
		Amount:      decimal.NewFromInt(120),
		Periodicity: "mensual",
	}

	t.Run("creates the mandate with its first installment charged", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		directory := new(MockDirectory)
		recorder := new(MockMovementRecorder)
		service := NewDomiciliationService(db, directory, recorder, newTestCache(), quietNotifier())

		account := testAccount("acc-m", request.ClientIBAN, "client-m", 5000)
		directory.On("ResolveClientByGUID", mock.Anything, "client-m").Return(client, nil)
		directory.On("GetByIBAN", mock.Anything, request.ClientIBAN).Return(account, nil)
		directory.On("MutateBalanceOutbox", mock.Anything, "acc-m", amountEq(decimal.NewFromInt(-120)), mock.Anything).
			Return(testAccount("acc-m", request.ClientIBAN, "client-m", 4880), nil)
		directory.On("MarkOutboxDispatched", mock.Anything, mock.Anything).Return()
		recorder.On("Append", mock.Anything, mock.MatchedBy(func(m *models.Movement) bool {
			return m.Kind == models.MovementDomiciliation && m.Domiciliation != nil &&
				m.Domiciliation.Amount.Equal(decimal.NewFromInt(120))
		})).Return(nil)

		dbmock.ExpectExec(`INSERT INTO domiciliaciones`).
			WithArgs(sqlmock.AnyArg(), "client-m", "Iberdrola", request.CompanyIBAN, request.ClientIBAN,
				"120", "mensual", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mandate, err := service.Create(ctx, principal, request)
		assert.NoError(t, err)
		assert.NotNil(t, mandate)
		assert.True(t, mandate.Active)
		assert.Equal(t, models.PeriodicityMonthly, mandate.Periodicity)
		assert.NotNil(t, mandate.LastRunAt)
		assert.NoError(t, dbmock.ExpectationsWereMet())
		recorder.AssertExpectations(t)
		directory.AssertExpectations(t)
	})

	t.Run("insufficient funds leaves no mandate behind", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		directory := new(MockDirectory)
		service := NewDomiciliationService(db, directory, new(MockMovementRecorder), newTestCache(), quietNotifier())

		directory.On("ResolveClientByGUID", mock.Anything, "client-m").Return(client, nil)
		directory.On("GetByIBAN", mock.Anything, request.ClientIBAN).
			Return(testAccount("acc-m", request.ClientIBAN, "client-m", 50), nil)

		mandate, err := service.Create(ctx, principal, request)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Nil(t, mandate)
		directory.AssertNotCalled(t, "MutateBalanceOutbox", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("rejects an account held by another client", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		directory := new(MockDirectory)
		service := NewDomiciliationService(db, directory, new(MockMovementRecorder), newTestCache(), quietNotifier())

		directory.On("ResolveClientByGUID", mock.Anything, "client-m").Return(client, nil)
		directory.On("GetByIBAN", mock.Anything, request.ClientIBAN).
			Return(testAccount("acc-z", request.ClientIBAN, "client-z", 5000), nil)

		_, err = service.Create(ctx, principal, request)
		assert.ErrorIs(t, err, ErrAccountMismatch)
	})

	t.Run("rejects an unknown periodicity", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		directory := new(MockDirectory)
		service := NewDomiciliationService(db, directory, new(MockMovementRecorder), newTestCache(), quietNotifier())

		directory.On("ResolveClientByGUID", mock.Anything, "client-m").Return(client, nil)
		directory.On("GetByIBAN", mock.Anything, request.ClientIBAN).
			Return(testAccount("acc-m", request.ClientIBAN, "client-m", 5000), nil)

		bad := request
		bad.Periodicity = "semanal"
		_, err = service.Create(ctx, principal, bad)
		assert.ErrorIs(t, err, models.ErrInvalidPeriodicity)
		directory.AssertNotCalled(t, "MutateBalanceOutbox", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed charge writes nothing", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		directory := new(MockDirectory)
		service := NewDomiciliationService(db, directory, new(MockMovementRecorder), newTestCache(), quietNotifier())

		directory.On("ResolveClientByGUID", mock.Anything, "client-m").Return(client, nil)
		directory.On("GetByIBAN", mock.Anything, request.ClientIBAN).
			Return(testAccount("acc-m", request.ClientIBAN, "client-m", 5000), nil)
		directory.On("MutateBalanceOutbox", mock.Anything, "acc-m", amountEq(decimal.NewFromInt(-120)), mock.Anything).
			Return(nil, ErrTransactionFailed)

		_, err = service.Create(ctx, principal, request)
		assert.ErrorIs(t, err, ErrTransactionFailed)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}

func TestDomiciliationService_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("flips an active mandate off", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewDomiciliationService(db, new(MockDirectory), new(MockMovementRecorder), newTestCache(), quietNotifier())

		dbmock.ExpectQuery(selectMandateByGUID).
			WithArgs("mandate-1").
			WillReturnRows(mandateRows("mandate-1", "client-m", true))
		dbmock.ExpectExec(`UPDATE domiciliaciones SET active = false WHERE guid = \$1`).
			WithArgs("mandate-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mandate, err := service.Deactivate(ctx, "mandate-1")
		assert.NoError(t, err)
		assert.False(t, mandate.Active)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("deactivating twice is an idempotent no-op", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewDomiciliationService(db, new(MockDirectory), new(MockMovementRecorder), newTestCache(), quietNotifier())

		dbmock.ExpectQuery(selectMandateByGUID).
			WithArgs("mandate-2").
			WillReturnRows(mandateRows("mandate-2", "client-m", true))
		dbmock.ExpectExec(`UPDATE domiciliaciones SET active = false WHERE guid = \$1`).
			WithArgs("mandate-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mandate, err := service.Deactivate(ctx, "mandate-2")
		assert.NoError(t, err)
		assert.False(t, mandate.Active)

		// Second call resolves the inactive mandate from the cache; no
		// further queries are expected.
		mandate, err = service.Deactivate(ctx, "mandate-2")
		assert.NoError(t, err)
		assert.False(t, mandate.Active)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("unknown mandate", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewDomiciliationService(db, new(MockDirectory), new(MockMovementRecorder), newTestCache(), quietNotifier())

		dbmock.ExpectQuery(selectMandateByGUID).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err = service.Deactivate(ctx, "missing")
		assert.ErrorIs(t, err, ErrMandateNotFound)
	})
}

func TestDomiciliationService_DeactivateOwn(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can deactivate their mandate", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewDomiciliationService(db, new(MockDirectory), new(MockMovementRecorder), newTestCache(), quietNotifier())

		dbmock.ExpectQuery(selectMandateByGUID).
			WithArgs("mandate-3").
			WillReturnRows(mandateRows("mandate-3", "client-m", true))
		dbmock.ExpectExec(`UPDATE domiciliaciones SET active = false WHERE guid = \$1`).
			WithArgs("mandate-3").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mandate, err := service.DeactivateOwn(ctx, models.Principal{ClientGUID: "client-m"}, "mandate-3")
		assert.NoError(t, err)
		assert.False(t, mandate.Active)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("foreign mandate is rejected", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewDomiciliationService(db, new(MockDirectory), new(MockMovementRecorder), newTestCache(), quietNotifier())

		dbmock.ExpectQuery(selectMandateByGUID).
			WithArgs("mandate-4").
			WillReturnRows(mandateRows("mandate-4", "client-m", true))

		_, err = service.DeactivateOwn(ctx, models.Principal{ClientGUID: "client-z"}, "mandate-4")
		assert.ErrorIs(t, err, ErrMandateNotOwned)
	})
}
