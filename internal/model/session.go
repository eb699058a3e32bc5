package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bookable scheduled event published by a creator.
// Price is stored in cents so no float arithmetic touches money.
type Session struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CreatorID       uuid.UUID `db:"creator_id" json:"creator_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	StartAt         time.Time `db:"start_at" json:"start_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int       `db:"capacity" json:"capacity"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SessionDetails is the read view of a session. AvailableSpots is
// computed from the confirmed-booking count at query time and
// IsBookedByUser is evaluated against the requesting user (always
// false for anonymous callers).
type SessionDetails struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CreatorID       uuid.UUID `db:"creator_id" json:"creator_id"`
	CreatorName     string    `db:"creator_name" json:"creator_name"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	StartAt         time.Time `db:"start_at" json:"start_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int       `db:"capacity" json:"capacity"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	AvailableSpots  int       `db:"available_spots" json:"available_spots"`
	IsBookedByUser  bool      `db:"is_booked_by_user" json:"is_booked_by_user"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
