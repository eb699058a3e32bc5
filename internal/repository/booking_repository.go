package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"marketplace-api/internal/model"
)

var (
	// ErrSessionMissing is returned when the referenced session does not exist.
	ErrSessionMissing = errors.New("session does not exist")
	// ErrSessionFull is returned when the confirmed bookings already fill the capacity.
	ErrSessionFull = errors.New("session is fully booked")
	// ErrAlreadyBooked is returned when a booking row already exists for the
	// (user, session) pair, in any status.
	ErrAlreadyBooked = errors.New("booking already exists for this user and session")
	// ErrNotConfirmed is returned when cancelling a booking that is not CONFIRMED.
	ErrNotConfirmed = errors.New("booking is not in confirmed status")
)

const uniqueViolation = "23505"

type BookingRepository interface {
	CreateConfirmed(ctx context.Context, userID, sessionID uuid.UUID) (*model.Booking, error)
	FindByID(ctx context.Context, bookingID uuid.UUID) (*model.BookingDetails, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BookingDetails, error)
	ListBySessionCreator(ctx context.Context, creatorID uuid.UUID) ([]model.BookingDetails, error)
}

type postgresBookingRepository struct {
	db *sqlx.DB
}

func NewPostgresBookingRepository(db *sqlx.DB) BookingRepository {
	return &postgresBookingRepository{db: db}
}

// CreateConfirmed reserves a seat. The capacity check and the insert run
// in one transaction with the session row locked, so two concurrent
// callers racing for the last seat are serialized: the second one sees
// the first one's insert and fails the count check. The UNIQUE
// (user_id, session_id) constraint catches duplicates atomically.
func (r *postgresBookingRepository) CreateConfirmed(ctx context.Context, userID, sessionID uuid.UUID) (*model.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var capacity int
	err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM sessions WHERE id = $1 FOR UPDATE`, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionMissing
		}

		return nil, err
	}

	var confirmed int
	err = tx.GetContext(ctx, &confirmed,
		`SELECT COUNT(*) FROM bookings WHERE session_id = $1 AND status = 'CONFIRMED'`, sessionID)
	if err != nil {
		return nil, err
	}

	if confirmed >= capacity {
		return nil, ErrSessionFull
	}

	booking := &model.Booking{
		UserID:    userID,
		SessionID: sessionID,
		Status:    model.BookingConfirmed,
	}

	row := tx.QueryRowxContext(ctx,
		`INSERT INTO bookings (user_id, session_id, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
		userID, sessionID, model.BookingConfirmed)
	if err := row.Scan(&booking.ID, &booking.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyBooked
		}

		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return booking, nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, bookingID uuid.UUID) (*model.BookingDetails, error) {
	var details model.BookingDetails
	query := `
		SELECT b.id, b.user_id, u.username, b.session_id,
		       s.title AS session_title, s.start_at AS session_start_at,
		       s.creator_id, b.status, b.created_at
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN sessions s ON s.id = b.session_id
		WHERE b.id = $1
	`
	err := r.db.GetContext(ctx, &details, query, bookingID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &details, nil
}

// Cancel moves a CONFIRMED booking to CANCELLED. The status guard in the
// WHERE clause makes the transition idempotence-safe: a second cancel
// matches no row and reports ErrNotConfirmed.
func (r *postgresBookingRepository) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = $1 AND status = 'CONFIRMED'`, bookingID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNotConfirmed
	}

	return nil
}

func (r *postgresBookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BookingDetails, error) {
	query := `
		SELECT b.id, b.user_id, u.username, b.session_id,
		       s.title AS session_title, s.start_at AS session_start_at,
		       s.creator_id, b.status, b.created_at
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN sessions s ON s.id = b.session_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`

	var bookings []model.BookingDetails
	err := r.db.SelectContext(ctx, &bookings, query, userID)
	if err != nil {
		return nil, err
	}

	if bookings == nil {
		bookings = []model.BookingDetails{}
	}

	return bookings, nil
}

func (r *postgresBookingRepository) ListBySessionCreator(ctx context.Context, creatorID uuid.UUID) ([]model.BookingDetails, error) {
	query := `
		SELECT b.id, b.user_id, u.username, b.session_id,
		       s.title AS session_title, s.start_at AS session_start_at,
		       s.creator_id, b.status, b.created_at
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN sessions s ON s.id = b.session_id
		WHERE s.creator_id = $1
		ORDER BY b.created_at DESC
	`

	var bookings []model.BookingDetails
	err := r.db.SelectContext(ctx, &bookings, query, creatorID)
	if err != nil {
		return nil, err
	}

	if bookings == nil {
		bookings = []model.BookingDetails{}
	}

	return bookings, nil
}
