package model

import (
	"time"

	"github.com/google/uuid"
)

// Booking status values. A booking is created CONFIRMED and may only
// move to CANCELLED; there is no way back. The row itself is never
// deleted except by cascade from its user or session.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

type Booking struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookingDetails joins a booking with its session and booker for list
// responses, so a creator auditing reservations sees who booked what.
type BookingDetails struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Username       string    `db:"username" json:"username"`
	SessionID      uuid.UUID `db:"session_id" json:"session_id"`
	SessionTitle   string    `db:"session_title" json:"session_title"`
	SessionStartAt time.Time `db:"session_start_at" json:"session_start_at"`
	CreatorID      uuid.UUID `db:"creator_id" json:"creator_id"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
