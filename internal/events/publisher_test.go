package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"marketplace-api/internal/events"
	"marketplace-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionCreatedEvent_Marshal(t *testing.T) {
	s := &model.Session{ID: uuid.New(), CreatorID: uuid.New(), Title: "C", StartAt: time.Now(), Capacity: 4}
	ev := events.SessionCreatedEvent{
		EventType: "session.created",
		SessionID: s.ID,
		CreatorID: s.CreatorID,
		Title:     s.Title,
		StartAt:   s.StartAt,
		Capacity:  s.Capacity,
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "session.created", decoded["event_type"])
	require.Equal(t, float64(4), decoded["capacity"])
}

func TestBookingCreatedEvent_Marshal(t *testing.T) {
	ev := events.BookingCreatedEvent{
		EventType: "booking.created",
		BookingID: uuid.New(),
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		BookedAt:  time.Now(),
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "booking.created", decoded["event_type"])
}
