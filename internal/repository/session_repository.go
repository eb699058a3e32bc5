package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace-api/internal/model"
)

// sessionDetailsColumns computes available_spots and is_booked_by_user
// on every read so the values can never drift from the booking ledger.
// The viewer ID is uuid.Nil for anonymous callers, which matches no row.
const sessionDetailsColumns = `
	s.id,
	s.creator_id,
	u.name AS creator_name,
	s.title,
	s.description,
	s.start_at,
	s.duration_minutes,
	s.capacity,
	s.price_cents,
	s.capacity - COUNT(b.id) FILTER (WHERE b.status = 'CONFIRMED') AS available_spots,
	COALESCE(BOOL_OR(b.user_id = $1 AND b.status = 'CONFIRMED'), FALSE) AS is_booked_by_user,
	s.created_at
`

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) (*model.Session, error)
	FindByID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
	Update(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
	ListAll(ctx context.Context, viewerID uuid.UUID) ([]model.SessionDetails, error)
	ListByCreator(ctx context.Context, creatorID, viewerID uuid.UUID) ([]model.SessionDetails, error)
	DetailsByID(ctx context.Context, sessionID, viewerID uuid.UUID) (*model.SessionDetails, error)
}

type postgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	query := `
		INSERT INTO sessions (creator_id, title, description, start_at, duration_minutes, capacity, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		session.CreatorID, session.Title, session.Description,
		session.StartAt, session.DurationMinutes, session.Capacity, session.PriceCents)
	err := row.Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *postgresSessionRepository) FindByID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	var session model.Session
	query := `SELECT * FROM sessions WHERE id = $1`
	err := r.db.GetContext(ctx, &session, query, sessionID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &session, nil
}

func (r *postgresSessionRepository) Update(ctx context.Context, session *model.Session) error {
	query := `
		UPDATE sessions
		SET title = $2,
		    description = $3,
		    start_at = $4,
		    duration_minutes = $5,
		    capacity = $6,
		    price_cents = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		session.ID, session.Title, session.Description,
		session.StartAt, session.DurationMinutes, session.Capacity, session.PriceCents)
	return row.Scan(&session.UpdatedAt)
}

func (r *postgresSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	// bookings go with the session via ON DELETE CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (r *postgresSessionRepository) ListAll(ctx context.Context, viewerID uuid.UUID) ([]model.SessionDetails, error) {
	query := `
		SELECT ` + sessionDetailsColumns + `
		FROM sessions s
		JOIN users u ON u.id = s.creator_id
		LEFT JOIN bookings b ON b.session_id = s.id
		GROUP BY s.id, u.name
		ORDER BY s.start_at ASC
	`

	var sessions []model.SessionDetails
	err := r.db.SelectContext(ctx, &sessions, query, viewerID)
	if err != nil {
		return nil, err
	}

	if sessions == nil {
		sessions = []model.SessionDetails{}
	}

	return sessions, nil
}

func (r *postgresSessionRepository) ListByCreator(ctx context.Context, creatorID, viewerID uuid.UUID) ([]model.SessionDetails, error) {
	query := `
		SELECT ` + sessionDetailsColumns + `
		FROM sessions s
		JOIN users u ON u.id = s.creator_id
		LEFT JOIN bookings b ON b.session_id = s.id
		WHERE s.creator_id = $2
		GROUP BY s.id, u.name
		ORDER BY s.start_at ASC
	`

	var sessions []model.SessionDetails
	err := r.db.SelectContext(ctx, &sessions, query, viewerID, creatorID)
	if err != nil {
		return nil, err
	}

	if sessions == nil {
		sessions = []model.SessionDetails{}
	}

	return sessions, nil
}

func (r *postgresSessionRepository) DetailsByID(ctx context.Context, sessionID, viewerID uuid.UUID) (*model.SessionDetails, error) {
	query := `
		SELECT ` + sessionDetailsColumns + `
		FROM sessions s
		JOIN users u ON u.id = s.creator_id
		LEFT JOIN bookings b ON b.session_id = s.id
		WHERE s.id = $2
		GROUP BY s.id, u.name
	`

	var details model.SessionDetails
	err := r.db.GetContext(ctx, &details, query, viewerID, sessionID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &details, nil
}
