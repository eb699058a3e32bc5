package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"marketplace-api/internal/model"
)

type EventPublisher interface {
	PublishSessionCreated(session *model.Session) error
	PublishBookingCreated(booking *model.Booking) error
	PublishBookingCancelled(bookingID, sessionID uuid.UUID) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (EventPublisher, error) {
	nc, err := nats.Connect(natsURL)

	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

type SessionCreatedEvent struct {
	EventType string    `json:"event_type"`
	SessionID uuid.UUID `json:"session_id"`
	CreatorID uuid.UUID `json:"creator_id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
	Capacity  int       `json:"capacity"`
}

type BookingCreatedEvent struct {
	EventType string    `json:"event_type"`
	BookingID uuid.UUID `json:"booking_id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	BookedAt  time.Time `json:"booked_at"`
}

type BookingCancelledEvent struct {
	EventType   string    `json:"event_type"`
	BookingID   uuid.UUID `json:"booking_id"`
	SessionID   uuid.UUID `json:"session_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (p *NatsPublisher) publish(subject string, event any) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshalling event", slog.String("subject", subject), slog.String("error", err.Error()))
		return err
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.Error("publishing to NATS", slog.String("subject", subject), slog.String("error", err.Error()))
		return err
	}

	return nil
}

func (p *NatsPublisher) PublishSessionCreated(session *model.Session) error {
	return p.publish("session.created", SessionCreatedEvent{
		EventType: "session.created",
		SessionID: session.ID,
		CreatorID: session.CreatorID,
		Title:     session.Title,
		StartAt:   session.StartAt,
		Capacity:  session.Capacity,
	})
}

func (p *NatsPublisher) PublishBookingCreated(booking *model.Booking) error {
	return p.publish("booking.created", BookingCreatedEvent{
		EventType: "booking.created",
		BookingID: booking.ID,
		SessionID: booking.SessionID,
		UserID:    booking.UserID,
		BookedAt:  booking.CreatedAt,
	})
}

func (p *NatsPublisher) PublishBookingCancelled(bookingID, sessionID uuid.UUID) error {
	return p.publish("booking.cancelled", BookingCancelledEvent{
		EventType:   "booking.cancelled",
		BookingID:   bookingID,
		SessionID:   sessionID,
		CancelledAt: time.Now(),
	})
}
