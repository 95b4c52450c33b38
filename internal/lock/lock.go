package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Config selects and configures the mutual-exclusion backend for sync runs
type Config struct {
	Backend        string        `envconfig:"LOCK_BACKEND" default:"postgres"`
	TTL            time.Duration `envconfig:"LOCK_TTL" default:"30m"`
	ValkeyAddr     string        `envconfig:"VALKEY_ADDR" default:"localhost:6379"`
	ValkeyPassword string        `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int           `envconfig:"VALKEY_DB" default:"0"`
}

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

// Locker hands out non-blocking, named locks. TryLock returns
// errors.ErrSyncInProgress when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// New builds the configured backend. db is only used by the postgres backend.
func New(cfg Config, db *sql.DB) (Locker, error) {
	switch cfg.Backend {
	case "", "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres lock backend requires a database")
		}
		return NewPostgresLocker(db), nil
	case "valkey", "redis":
		return NewValkeyLocker(cfg)
	case "local":
		return NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}
