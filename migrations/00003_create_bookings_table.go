package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookingsTable, downCreateBookingsTable)
}

func upCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	// UNIQUE(user_id, session_id) is on the pair irrespective of status:
	// a cancelled booking still blocks re-booking the same session.
	query := `
		CREATE TABLE bookings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'CONFIRMED' CHECK (status IN ('CONFIRMED', 'CANCELLED')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
			UNIQUE(user_id, session_id)
		);

		CREATE INDEX idx_bookings_session_id ON bookings(session_id);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS bookings;`)
	return err
}
