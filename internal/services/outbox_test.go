package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bancoatlas/backoffice/internal/models"
)

const selectPendingOutbox = `SELECT id, movement_guid, payload FROM movement_outbox WHERE status = 'pending' ORDER BY created_at LIMIT \$1 FOR UPDATE SKIP LOCKED`

func pendingRow(t *testing.T, id int64, movement *models.Movement) *sqlmock.Rows {
	t.Helper()
	payload, err := json.Marshal(movement)
	assert.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "movement_guid", "payload"}).
		AddRow(id, movement.GUID, payload)
}

func TestOutboxDrainer_DrainOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("replays a pending movement into the log", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		recorder := new(MockMovementRecorder)
		drainer := NewOutboxDrainer(db, recorder)

		movement := payrollMovement("client-1")
		recorder.On("GetByGUID", mock.Anything, movement.GUID).Return(nil, nil)
		recorder.On("Append", mock.Anything, mock.MatchedBy(func(m *models.Movement) bool {
			return m.GUID == movement.GUID && m.Kind == models.MovementPayroll
		})).Return(nil)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(selectPendingOutbox).
			WithArgs(50).
			WillReturnRows(pendingRow(t, 1, movement))
		dbmock.ExpectExec(`UPDATE movement_outbox SET status = 'dispatched', dispatched_at = \$1 WHERE id = \$2`).
			WithArgs(sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		n, err := drainer.DrainOnce(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.NoError(t, dbmock.ExpectationsWereMet())
		recorder.AssertExpectations(t)
	})

	t.Run("movement already recorded is only marked dispatched", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		recorder := new(MockMovementRecorder)
		drainer := NewOutboxDrainer(db, recorder)

		movement := payrollMovement("client-1")
		recorder.On("GetByGUID", mock.Anything, movement.GUID).Return(movement, nil)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(selectPendingOutbox).
			WithArgs(50).
			WillReturnRows(pendingRow(t, 2, movement))
		dbmock.ExpectExec(`UPDATE movement_outbox SET status = 'dispatched', dispatched_at = \$1 WHERE id = \$2`).
			WithArgs(sqlmock.AnyArg(), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		n, err := drainer.DrainOnce(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		recorder.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("failed append keeps the row pending with attempts bumped", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		recorder := new(MockMovementRecorder)
		drainer := NewOutboxDrainer(db, recorder)

		movement := payrollMovement("client-1")
		recorder.On("GetByGUID", mock.Anything, movement.GUID).Return(nil, nil)
		recorder.On("Append", mock.Anything, mock.Anything).Return(errors.New("store down"))

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(selectPendingOutbox).
			WithArgs(50).
			WillReturnRows(pendingRow(t, 3, movement))
		dbmock.ExpectExec(`UPDATE movement_outbox SET attempts = attempts \+ 1 WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		n, err := drainer.DrainOnce(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("empty batch", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		drainer := NewOutboxDrainer(db, new(MockMovementRecorder))

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(selectPendingOutbox).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "movement_guid", "payload"}))
		dbmock.ExpectCommit()

		n, err := drainer.DrainOnce(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}
