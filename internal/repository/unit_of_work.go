package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courtsync/internal/database"
)

type SQLUnitOfWork struct {
	db *database.DB
}

func NewUnitOfWork(db *database.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

func (u *SQLUnitOfWork) Begin(ctx context.Context) (Tx, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Courts() CourtStore                 { return NewCourtRepository(t.tx) }
func (t *sqlTx) OperatingHours() OperatingHourStore { return NewOperatingHourRepository(t.tx) }
func (t *sqlTx) Users() UserStore                   { return NewUserRepository(t.tx) }
func (t *sqlTx) Bookings() BookingStore             { return NewBookingRepository(t.tx) }

// Savepoint names are trusted identifiers chosen by the caller.
func (t *sqlTx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

func (t *sqlTx) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

func (t *sqlTx) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
