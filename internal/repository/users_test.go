package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minischeduler/internal/database"
	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.New(sqlDB), mock
}

var (
	debitSQL   = regexp.QuoteMeta("SET available_tickets = available_tickets - 1, used_tickets = used_tickets + 1")
	creditSQL  = regexp.QuoteMeta("SET available_tickets = available_tickets + 1")
	accountSQL = regexp.QuoteMeta("SELECT available_tickets, used_tickets FROM users WHERE user_id = $1")
	lockSQL    = regexp.QuoteMeta("SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE")
)

func TestDebitReturnsNewBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(debitSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets"}).AddRow(2))

	balance, err := repo.Debit(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitWithEmptyBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(debitSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets"}))
	mock.ExpectQuery(accountSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets", "used_tickets"}).AddRow(0, 3))

	_, err := repo.Debit(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientTickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(debitSQL).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets"}))
	mock.ExpectQuery(accountSQL).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets", "used_tickets"}))

	_, err := repo.Debit(context.Background(), 99)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCreditStorageFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(creditSQL).WithArgs(int64(7)).WillReturnError(errors.New("connection reset"))

	_, err := repo.Credit(context.Background(), 7)
	assert.Equal(t, apperrors.KindStorageFailure, apperrors.KindOf(err))
}

func TestTransactorLocksUserBeforeWork(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectQuery(debitSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"available_tickets"}).AddRow(0))
	mock.ExpectCommit()

	err := repos.Transactor.WithUserLock(context.Background(), 7, func(ctx context.Context) error {
		_, err := repos.Users.Debit(ctx, 7)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorUnknownUserRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	called := false
	err := repos.Transactor.WithUserLock(context.Background(), 5, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	updateSQL := regexp.QuoteMeta("UPDATE users SET full_name = $1, password_hash = $2 WHERE user_id = $3")

	mock.ExpectExec(updateSQL).WithArgs("Kim Minji", "hash", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateSQL).WithArgs("Kim Minji", "hash", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), &models.User{UserID: 7, FullName: "Kim Minji", PasswordHash: "hash"}))
	err := repo.Update(context.Background(), &models.User{UserID: 8, FullName: "Kim Minji", PasswordHash: "hash"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
