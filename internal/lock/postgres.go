package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	apperrors "courtsync/internal/errors"
)

// PostgresLocker uses session-level advisory locks. The lock lives on a
// dedicated pooled connection that is held until Unlock.
type PostgresLocker struct {
	db *sql.DB
}

func NewPostgresLocker(db *sql.DB) *PostgresLocker {
	return &PostgresLocker{db: db}
}

func (l *PostgresLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&acquired)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to take advisory lock %s: %w", key, err)
	}
	if !acquired {
		conn.Close()
		return nil, apperrors.ErrSyncInProgress
	}

	return func(ctx context.Context) error {
		var released bool
		err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, key).Scan(&released)
		if err != nil {
			// The session may still hold the lock; it must not go back to the pool.
			discard(conn)
			return fmt.Errorf("failed to release advisory lock %s: %w", key, err)
		}
		conn.Close()
		if !released {
			return fmt.Errorf("advisory lock %s was not held by this session", key)
		}
		return nil
	}, nil
}

// discard closes the underlying driver connection instead of returning it
// to the pool.
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	conn.Close()
}
