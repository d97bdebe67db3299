package repository

import (
	"context"
	"database/sql"
	"errors"

	"minischeduler/internal/database"
	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
)

// UserRepository stores accounts and owns the ticket ledger columns.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT user_id, email, password_hash, full_name, role,
	       available_tickets, used_tickets, registered_at, is_active
	FROM users`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&role,
		&user.AvailableTickets,
		&user.UsedTickets,
		&user.RegisteredAt,
		&user.IsActive,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.Conn(ctx).QueryRowContext(ctx, selectUser+` WHERE user_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("get user", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.Conn(ctx).QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("get user by email", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, role, available_tickets, used_tickets, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id, registered_at`

	err := r.db.Conn(ctx).QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		string(user.Role),
		user.AvailableTickets,
		user.UsedTickets,
		user.IsActive,
	).Scan(&user.UserID, &user.RegisteredAt)

	if database.IsUniqueViolation(err, "") {
		return apperrors.ErrEmailTaken
	}
	if err != nil {
		return apperrors.Storage("create user", err)
	}
	return nil
}

// Update stores the profile fields: full name and password hash.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE users SET full_name = $1, password_hash = $2 WHERE user_id = $3`,
		user.FullName, user.PasswordHash, user.UserID)
	if err != nil {
		return apperrors.Storage("update user", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("update user", err)
	}
	if affected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// Lock takes the row lock on the user's ledger row. It must run inside a transaction.
func (r *UserRepository) Lock(ctx context.Context, userID int64) error {
	var id int64
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return apperrors.Storage("lock user", err)
	}
	return nil
}

// Debit consumes one ticket and returns the new available balance.
func (r *UserRepository) Debit(ctx context.Context, userID int64) (int, error) {
	var balance int
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		UPDATE users
		SET available_tickets = available_tickets - 1, used_tickets = used_tickets + 1
		WHERE user_id = $1 AND available_tickets > 0
		RETURNING available_tickets`, userID).Scan(&balance)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.Balance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, apperrors.ErrInsufficientTickets
	}
	if database.IsCheckViolation(err) {
		return 0, apperrors.ErrInsufficientTickets
	}
	if err != nil {
		return 0, apperrors.Storage("debit ticket", err)
	}
	return balance, nil
}

// Credit returns one ticket. The used counter is a lifetime audit and stays as is.
func (r *UserRepository) Credit(ctx context.Context, userID int64) (int, error) {
	var balance int
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		UPDATE users
		SET available_tickets = available_tickets + 1
		WHERE user_id = $1
		RETURNING available_tickets`, userID).Scan(&balance)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.ErrUserNotFound
	}
	if err != nil {
		return 0, apperrors.Storage("credit ticket", err)
	}
	return balance, nil
}

func (r *UserRepository) Balance(ctx context.Context, userID int64) (int, error) {
	account, err := r.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.AvailableTickets, nil
}

func (r *UserRepository) Account(ctx context.Context, userID int64) (models.TicketAccount, error) {
	account := models.TicketAccount{UserID: userID}
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT available_tickets, used_tickets FROM users WHERE user_id = $1`, userID).
		Scan(&account.AvailableTickets, &account.UsedTickets)

	if errors.Is(err, sql.ErrNoRows) {
		return models.TicketAccount{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return models.TicketAccount{}, apperrors.Storage("get ticket account", err)
	}
	return account, nil
}
