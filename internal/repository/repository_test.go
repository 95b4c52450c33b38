package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"courtsync/internal/database"
	"courtsync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var courtCols = []string{"id", "ayo_field_id", "name", "type", "surface", "status", "price_per_hour", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestCourtRepository_GetByAyoFieldID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCourtRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courts WHERE ayo_field_id = $1")).
		WithArgs("F1").
		WillReturnRows(sqlmock.NewRows(courtCols).
			AddRow(int64(7), "F1", "Court 1", "indoor", "Padel", "active", 150000.0, now, now))

	court, err := repo.GetByAyoFieldID(context.Background(), "F1")
	require.NoError(t, err)
	require.NotNil(t, court)
	assert.Equal(t, int64(7), court.ID)
	require.NotNil(t, court.AyoFieldID)
	assert.Equal(t, "F1", *court.AyoFieldID)
	assert.Equal(t, "Padel", court.Surface)
	assert.Equal(t, 150000.0, court.PricePerHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourtRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCourtRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courts WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(courtCols))

	court, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, court)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourtRepository_GetByIDNullFieldID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCourtRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courts WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(courtCols).
			AddRow(int64(3), nil, "Manual court", "outdoor", "", "maintenance", 90000.0, now, now))

	court, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, court)
	assert.Nil(t, court.AyoFieldID)
	assert.Equal(t, models.CourtStatusMaintenance, court.Status)
}

func TestCourtRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCourtRepository(db)
	now := time.Now()
	fieldID := "F2"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courts")).
		WithArgs("F2", "Court 2", "indoor", "Padel", "closed", 0.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(12), now, now))

	court := &models.Court{AyoFieldID: &fieldID, Name: "Court 2", Type: "indoor", Surface: "Padel", Status: "closed"}
	require.NoError(t, repo.Create(context.Background(), court))
	assert.Equal(t, int64(12), court.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatingHourRepository_CreateBatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOperatingHourRepository(db)

	hours := make([]models.OperatingHour, 7)
	for day := 0; day < 7; day++ {
		hours[day] = models.OperatingHour{CourtID: 5, DayOfWeek: day, OpenTime: "08:00:00", CloseTime: "22:00:00"}
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO operating_hours")).
			WithArgs(int64(5), day, "08:00:00", "22:00:00", false).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100 + day)))
	}

	require.NoError(t, repo.CreateBatch(context.Background(), hours))
	assert.Equal(t, int64(106), hours[6].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatingHourRepository_CreateBatchError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOperatingHourRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO operating_hours")).
		WillReturnError(errors.New("constraint violation"))

	err := repo.CreateBatch(context.Background(), []models.OperatingHour{{CourtID: 1, DayOfWeek: 0}})
	assert.ErrorContains(t, err, "day 0")
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("budi@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "role", "password", "created_at"}).
			AddRow(int64(4), "Budi", "budi@example.com", nil, "user", "hash", now))

	user, err := repo.GetByEmail(context.Background(), "budi@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(4), user.ID)
	assert.Nil(t, user.Phone)
}

func TestBookingRepository_FindBySlot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE court_id = $1 AND start_time = $2 AND end_time = $3")).
		WithArgs(int64(2), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "court_id", "start_time", "end_time", "status", "total_price", "notes", "created_at", "updated_at"}).
			AddRow(int64(31), int64(4), int64(2), start, end, "confirmed", 300000.0, nil, start, start))

	booking, err := repo.FindBySlot(context.Background(), 2, start, end)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, int64(31), booking.ID)
	assert.Equal(t, "", booking.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings")).
		WithArgs("paid", 250000.0, int64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.Booking{ID: 31, Status: "paid", TotalPrice: 250000})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_CommitThenRollbackIsNoop(t *testing.T) {
	db, mock := newMock(t)
	uow := NewUnitOfWork(database.New(db))
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectCommit()

	tx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.Users().Create(context.Background(), &models.User{Name: "A", Email: "a@example.com", Role: "user", Password: "x"}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_Rollback(t *testing.T) {
	db, mock := newMock(t)
	uow := NewUnitOfWork(database.New(db))

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_BeginError(t *testing.T) {
	db, mock := newMock(t)
	uow := NewUnitOfWork(database.New(db))

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := uow.Begin(context.Background())
	assert.ErrorContains(t, err, "failed to begin transaction")
}

func TestUnitOfWork_Savepoints(t *testing.T) {
	db, mock := newMock(t)
	uow := NewUnitOfWork(database.New(db))
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT item")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT item")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT item")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Savepoint(ctx, "item"))
	require.NoError(t, tx.RollbackToSavepoint(ctx, "item"))
	require.NoError(t, tx.ReleaseSavepoint(ctx, "item"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
