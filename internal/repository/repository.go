package repository

import (
	"context"

	"minischeduler/internal/database"
)

type Repositories struct {
	Users        *UserRepository
	Events       *EventRepository
	Reservations *ReservationRepository
	Transactor   *Transactor
}

func NewRepositories(db *database.DB) *Repositories {
	users := NewUserRepository(db)
	return &Repositories{
		Users:        users,
		Events:       NewEventRepository(db),
		Reservations: NewReservationRepository(db),
		Transactor:   NewTransactor(db, users),
	}
}

// Transactor serializes work per user with a row lock on the user's ledger row.
type Transactor struct {
	db    *database.DB
	users *UserRepository
}

func NewTransactor(db *database.DB, users *UserRepository) *Transactor {
	return &Transactor{db: db, users: users}
}

// WithUserLock runs fn in a transaction holding userID's row lock. Work for
// other users proceeds concurrently.
func (t *Transactor) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	return t.db.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.users.Lock(txCtx, userID); err != nil {
			return err
		}
		return fn(txCtx)
	})
}
