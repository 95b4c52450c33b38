package database

import (
	"context"
	"fmt"
	"log/slog"
)

// RunMigrations creates the tables the sync engine reads and writes. The
// wider application normally owns this schema; this is for standalone use.
func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createCourtsTable,
		createCourtsAyoFieldIndex,
		createOperatingHoursTable,
		createUsersTable,
		createBookingsTable,
		createBookingsSlotIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createCourtsTable = `
CREATE TABLE IF NOT EXISTS courts (
    id BIGSERIAL PRIMARY KEY,
    ayo_field_id VARCHAR(64),
    name VARCHAR(255) NOT NULL,
    type VARCHAR(20) NOT NULL DEFAULT 'indoor',
    surface VARCHAR(100),
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    price_per_hour DECIMAL(12,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('active', 'maintenance', 'closed'))
);`

// Unique only among non-null values; manually created courts carry NULL.
const createCourtsAyoFieldIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_courts_ayo_field_id
    ON courts(ayo_field_id) WHERE ayo_field_id IS NOT NULL;`

const createOperatingHoursTable = `
CREATE TABLE IF NOT EXISTS operating_hours (
    id BIGSERIAL PRIMARY KEY,
    court_id BIGINT NOT NULL REFERENCES courts(id) ON DELETE CASCADE,
    day_of_week SMALLINT NOT NULL,
    open_time TIME NOT NULL,
    close_time TIME NOT NULL,
    is_closed BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(court_id, day_of_week),
    CHECK (day_of_week BETWEEN 0 AND 6)
);`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    phone VARCHAR(50),
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    password VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    court_id BIGINT NOT NULL REFERENCES courts(id),
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    total_price DECIMAL(12,2) NOT NULL DEFAULT 0,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (end_time > start_time)
);`

const createBookingsSlotIndex = `
CREATE INDEX IF NOT EXISTS idx_bookings_court_slot
    ON bookings(court_id, start_time, end_time);`
