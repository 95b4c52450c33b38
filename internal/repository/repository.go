package repository

import (
	"context"
	"database/sql"
	"time"

	"courtsync/internal/database"
	"courtsync/internal/models"
)

// DBTX is satisfied by *sql.DB, *sql.Tx and *database.DB so every repository
// works both inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type CourtReader interface {
	GetByID(ctx context.Context, id int64) (*models.Court, error)
	GetByAyoFieldID(ctx context.Context, fieldID string) (*models.Court, error)
}

type CourtStore interface {
	CourtReader
	Create(ctx context.Context, court *models.Court) error
	Update(ctx context.Context, court *models.Court) error
}

type OperatingHourStore interface {
	CreateBatch(ctx context.Context, hours []models.OperatingHour) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type BookingStore interface {
	FindBySlot(ctx context.Context, courtID int64, start, end time.Time) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
}

// Tx scopes the stores to one database transaction. Rollback after Commit is
// a no-op.
type Tx interface {
	Courts() CourtStore
	OperatingHours() OperatingHourStore
	Users() UserStore
	Bookings() BookingStore
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	Commit() error
	Rollback() error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

type Repositories struct {
	Courts         *CourtRepository
	OperatingHours *OperatingHourRepository
	Users          *UserRepository
	Bookings       *BookingRepository
	UnitOfWork     *SQLUnitOfWork
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Courts:         NewCourtRepository(db),
		OperatingHours: NewOperatingHourRepository(db),
		Users:          NewUserRepository(db),
		Bookings:       NewBookingRepository(db),
		UnitOfWork:     NewUnitOfWork(db),
	}
}
