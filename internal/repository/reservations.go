package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"minischeduler/internal/database"
	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
)

// ReservationRepository stores reservation records. Every method touches a
// single record; multi-step units are composed by the caller inside a
// Transactor scope.
type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const selectReservation = `
	SELECT id, user_id, event_id, schedule_start, schedule_month, status, created_at, decided_at
	FROM reservations`

func scanReservation(row interface{ Scan(...any) error }) (models.Reservation, error) {
	var res models.Reservation
	var status string
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.EventID,
		&res.ScheduleStart,
		&res.ScheduleMonth,
		&status,
		&res.CreatedAt,
		&res.DecidedAt,
	)
	res.Status = models.ReservationStatus(status)
	return res, err
}

func (r *ReservationRepository) Insert(ctx context.Context, res *models.Reservation) (int64, error) {
	query := `
		INSERT INTO reservations (user_id, event_id, schedule_start, schedule_month, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.Conn(ctx).QueryRowContext(ctx, query,
		res.UserID,
		res.EventID,
		res.ScheduleStart,
		res.ScheduleMonth,
		string(res.Status),
		res.CreatedAt,
	).Scan(&res.ID)

	if database.IsUniqueViolation(err, database.ReservationMonthIndex) {
		return 0, apperrors.ErrDuplicateMonthly
	}
	if database.IsForeignKeyViolation(err) {
		return 0, apperrors.ErrEventNotFound
	}
	if err != nil {
		return 0, apperrors.Storage("insert reservation", err)
	}
	return res.ID, nil
}

func (r *ReservationRepository) Get(ctx context.Context, id int64) (models.Reservation, error) {
	res, err := scanReservation(r.db.Conn(ctx).QueryRowContext(ctx, selectReservation+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, apperrors.ErrReservationNotFound
	}
	if err != nil {
		return models.Reservation{}, apperrors.Storage("get reservation", err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return r.list(ctx, "list reservations by user", selectReservation+` WHERE user_id = $1 ORDER BY schedule_start`, userID)
}

func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.Reservation, error) {
	return r.list(ctx, "list reservations by event", selectReservation+` WHERE event_id = $1 ORDER BY created_at`, eventID)
}

func (r *ReservationRepository) list(ctx context.Context, op, query string, args ...any) ([]models.Reservation, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, apperrors.Storage(op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return out, nil
}

// UpdateStatus moves a pending reservation to a terminal status.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status models.ReservationStatus, at time.Time) error {
	if !status.Terminal() {
		return apperrors.New(apperrors.KindIllegalState, "reservation can only move to accepted or refused")
	}

	result, err := r.db.Conn(ctx).ExecContext(ctx, `
		UPDATE reservations SET status = $1, decided_at = $2
		WHERE id = $3 AND status = 'PENDING'`, string(status), at, id)
	if err != nil {
		return apperrors.Storage("update reservation status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("update reservation status", err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return apperrors.ErrIllegalTransition
}

func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return apperrors.Storage("delete reservation", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("delete reservation", err)
	}
	if affected == 0 {
		return apperrors.ErrReservationNotFound
	}
	return nil
}

// CountByOrganizer summarizes reservation progress across an organizer's events.
func (r *ReservationRepository) CountByOrganizer(ctx context.Context, organizerID int64) (models.ProgressSummary, error) {
	summary := models.ProgressSummary{OrganizerID: organizerID}
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM events WHERE organizer_id = $1),
		    COUNT(r.id) FILTER (WHERE r.status = 'PENDING'),
		    COUNT(r.id) FILTER (WHERE r.status = 'ACCEPTED'),
		    COUNT(r.id) FILTER (WHERE r.status = 'REFUSED')
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE e.organizer_id = $1`, organizerID).
		Scan(&summary.Events, &summary.Pending, &summary.Accepted, &summary.Refused)
	if err != nil {
		return models.ProgressSummary{}, apperrors.Storage("count reservations by organizer", err)
	}
	return summary, nil
}
