// Package authz holds the two request policies in one place so they are
// testable on their own and never re-implemented ad hoc in handlers:
// sessions are read-open/creator-write, bookings and profiles require an
// authenticated caller. The role gates the verb, ownership gates the
// specific resource.
package authz

import (
	"github.com/google/uuid"

	"marketplace-api/internal/model"
)

// Caller is the authenticated identity reconstructed from token claims.
// A nil *Caller means the request is anonymous.
type Caller struct {
	ID       uuid.UUID
	Username string
	Role     string
}

// CanPublishSessions reports whether the caller may create sessions at all.
func CanPublishSessions(c *Caller) bool {
	return c != nil && c.Role == model.RoleCreator
}

// CanManageSession reports whether the caller may update or delete the
// session. Other creators fail this check: ownership is per instance.
func CanManageSession(c *Caller, s *model.Session) bool {
	return c != nil && c.Role == model.RoleCreator && s != nil && s.CreatorID == c.ID
}

// CanViewBooking reports whether the caller may read the booking: the
// booker themselves, or the creator who owns the booked session.
func CanViewBooking(c *Caller, b *model.BookingDetails) bool {
	if c == nil || b == nil {
		return false
	}
	if b.UserID == c.ID {
		return true
	}
	return c.Role == model.RoleCreator && b.CreatorID == c.ID
}

// CanCancelBooking reports whether the caller may cancel the booking.
// Only the booker releases their own seat.
func CanCancelBooking(c *Caller, b *model.BookingDetails) bool {
	return c != nil && b != nil && b.UserID == c.ID
}
