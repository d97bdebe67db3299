package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/stan.go"

	"minischeduler/internal/logger"
	"minischeduler/internal/models"
)

// SummaryInvalidator drops cached organizer summaries.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, organizerID int64)
}

type Handlers struct {
	summaries SummaryInvalidator
}

func NewHandlers(summaries SummaryInvalidator) *Handlers {
	return &Handlers{summaries: summaries}
}

// HandleReservationEvent is the stan callback for every reservation subject.
// Messages are acknowledged once processed; undecodable ones are dropped.
func (h *Handlers) HandleReservationEvent(m *stan.Msg) {
	log := logger.Get().With("subject", m.Subject, "sequence", m.Sequence)

	if err := h.Process(context.Background(), m.Subject, m.Data); err != nil {
		log.Error("Dropping reservation event", "error", err)
	}
	if err := m.Ack(); err != nil {
		log.Error("Failed to ack reservation event", "error", err)
	}
}

// Process decodes one reservation event, notifies its owner and refreshes
// the organizer's summary.
func (h *Handlers) Process(ctx context.Context, subject string, data []byte) error {
	var event models.ReservationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal %s: %w", subject, err)
	}
	if event.ReservationID == 0 || event.UserID == 0 {
		return fmt.Errorf("%s: reservation_id and user_id are required", subject)
	}

	log := logger.WithFields(
		"subject", subject,
		"reservation_id", event.ReservationID,
		"owner_id", event.UserID,
		"event_id", event.EventID)

	switch subject {
	case models.EventReservationCreated:
		log.Info("Notify organizer of new reservation", "organizer_id", event.OrganizerID, "schedule_start", event.ScheduleStart)
	case models.EventReservationAccepted:
		log.Info("Notify user: reservation accepted", "schedule_start", event.ScheduleStart)
	case models.EventReservationRefused:
		log.Info("Notify user: reservation refused, ticket returned", "available_tickets", event.AvailableTickets)
	case models.EventReservationCancelled:
		log.Info("Reservation cancelled by owner", "available_tickets", event.AvailableTickets)
	default:
		log.Warn("Unknown reservation subject")
	}

	if h.summaries != nil && event.OrganizerID != 0 {
		h.summaries.InvalidateSummary(ctx, event.OrganizerID)
	}
	return nil
}
