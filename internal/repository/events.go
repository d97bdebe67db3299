package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"minischeduler/internal/database"
	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
)

// EventRepository is the catalog of schedulable events.
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventFilter narrows List. Zero fields are ignored. Keyword matches the
// title or the organizer's full name, case-insensitively.
type EventFilter struct {
	From        time.Time
	To          time.Time
	OrganizerID int64
	Keyword     string
}

const selectEvent = `
	SELECT id, organizer_id, title, description, schedule_start, schedule_end, capacity, created_at
	FROM events`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&event.ScheduleStart,
		&event.ScheduleEnd,
		&event.Capacity,
		&event.CreatedAt,
	)
	return event, err
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (organizer_id, title, description, schedule_start, schedule_end, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.Conn(ctx).QueryRowContext(ctx, query,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.ScheduleStart,
		event.ScheduleEnd,
		event.Capacity,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return apperrors.Storage("create event", err)
	}
	return nil
}

// Update rewrites the editable fields of an event. The organizer and
// creation time are kept and copied back into event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, schedule_start = $3, schedule_end = $4, capacity = $5
		WHERE id = $6
		RETURNING organizer_id, created_at`

	err := r.db.Conn(ctx).QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.ScheduleStart,
		event.ScheduleEnd,
		event.Capacity,
		event.ID,
	).Scan(&event.OrganizerID, &event.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrEventNotFound
	}
	if err != nil {
		return apperrors.Storage("update event", err)
	}
	return nil
}

// Delete removes an event. Refused reservations go with it through the
// foreign key cascade; pending or accepted ones keep the event alive. The
// event row lock orders the check against concurrent reservation inserts.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)

		var locked int64
		err := conn.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrEventNotFound
		}
		if err != nil {
			return apperrors.Storage("lock event", err)
		}

		var active int
		err = conn.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE event_id = $1 AND status IN ('PENDING', 'ACCEPTED')`, id).Scan(&active)
		if err != nil {
			return apperrors.Storage("count event reservations", err)
		}
		if active > 0 {
			return apperrors.ErrEventHasReservations
		}

		if _, err := conn.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
			return apperrors.Storage("delete event", err)
		}
		return nil
	})
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx, selectEvent+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("get event", err)
	}
	return event, nil
}

func (r *EventRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperrors.Storage("check event", err)
	}
	return exists, nil
}

func (r *EventRepository) OrganizerOf(ctx context.Context, id int64) (int64, error) {
	var organizerID int64
	err := r.db.Conn(ctx).QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = $1`, id).Scan(&organizerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.ErrEventNotFound
	}
	if err != nil {
		return 0, apperrors.Storage("get event organizer", err)
	}
	return organizerID, nil
}

func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if !filter.From.IsZero() {
		add("schedule_start >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("schedule_start < $%d", filter.To)
	}
	if filter.OrganizerID != 0 {
		add("organizer_id = $%d", filter.OrganizerID)
	}
	if filter.Keyword != "" {
		add("(title ILIKE $%[1]d OR EXISTS (SELECT 1 FROM users u WHERE u.user_id = organizer_id AND u.full_name ILIKE $%[1]d))",
			"%"+escapeLike(filter.Keyword)+"%")
	}

	query := selectEvent
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY schedule_start, id"

	return r.query(ctx, "list events", query, args...)
}

// GetByIDs loads events in schedule order; unknown ids are skipped.
func (r *EventRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, "get events by ids",
		selectEvent+` WHERE id = ANY($1) ORDER BY schedule_start, id`, pq.Array(ids))
}

func (r *EventRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.Storage(op, err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return events, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
