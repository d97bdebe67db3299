package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createReservationsTable,
		createReservationsMonthIndex,
		createReservationsUserIndex,
		createReservationsEventIndex,
		createEventsScheduleIndex,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// ReservationMonthIndex backs the one-reservation-per-month rule.
const ReservationMonthIndex = "reservations_user_month_active_idx"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    full_name VARCHAR(100) NOT NULL,
    role VARCHAR(10) NOT NULL DEFAULT 'user',
    available_tickets INTEGER NOT NULL DEFAULT 0,
    used_tickets INTEGER NOT NULL DEFAULT 0,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (role IN ('user', 'admin')),
    CHECK (available_tickets >= 0),
    CHECK (used_tickets >= 0)
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    organizer_id INTEGER NOT NULL REFERENCES users(user_id),
    title VARCHAR(500) NOT NULL,
    description TEXT,
    schedule_start TIMESTAMPTZ NOT NULL,
    schedule_end TIMESTAMPTZ NOT NULL,
    capacity INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (schedule_end >= schedule_start),
    CHECK (capacity >= 0)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    schedule_start TIMESTAMPTZ NOT NULL,
    schedule_month CHAR(7) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    decided_at TIMESTAMPTZ,

    CHECK (status IN ('PENDING', 'ACCEPTED', 'REFUSED'))
);`

const createReservationsMonthIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS ` + ReservationMonthIndex + `
ON reservations (user_id, schedule_month)
WHERE status IN ('PENDING', 'ACCEPTED');`

const createReservationsUserIndex = `
CREATE INDEX IF NOT EXISTS reservations_user_idx ON reservations (user_id);`

const createReservationsEventIndex = `
CREATE INDEX IF NOT EXISTS reservations_event_idx ON reservations (event_id);`

const createEventsScheduleIndex = `
CREATE INDEX IF NOT EXISTS events_schedule_start_idx ON events (schedule_start);`
