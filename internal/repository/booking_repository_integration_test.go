package repository

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"marketplace-api/internal/model"
	_ "marketplace-api/migrations"
)

type BookingRepositoryIntegrationTestSuite struct {
	suite.Suite
	db       *sqlx.DB
	users    UserRepository
	sessions SessionRepository
	bookings BookingRepository
	pgc      *postgres.PostgresContainer
	ctx      context.Context
}

func (s *BookingRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgc, err := postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	s.pgc = pgc

	connStr, err := pgc.ConnectionString(s.ctx, "sslmode=disable")
	assert.NoError(s.T(), err)

	db, err := sqlx.Connect("pgx", connStr)
	assert.NoError(s.T(), err)
	s.db = db

	err = goose.Up(db.DB, "../../migrations")
	assert.NoError(s.T(), err)

	s.users = NewPostgresUserRepository(s.db)
	s.sessions = NewPostgresSessionRepository(s.db)
	s.bookings = NewPostgresBookingRepository(s.db)
}

func (s *BookingRepositoryIntegrationTestSuite) TearDownSuite() {
	s.db.Close()
	if err := s.pgc.Terminate(s.ctx); err != nil {
		log.Fatalf("failed to terminate pg container: %s", err)
	}
}

func (s *BookingRepositoryIntegrationTestSuite) newUser(role string) uuid.UUID {
	id, err := s.users.Create(s.ctx, &model.User{
		Username: "u-" + uuid.NewString(),
		Name:     "Test User",
		Role:     role,
	})
	assert.NoError(s.T(), err)
	return id
}

func (s *BookingRepositoryIntegrationTestSuite) newSession(creatorID uuid.UUID, capacity int) *model.Session {
	session, err := s.sessions.Create(s.ctx, &model.Session{
		CreatorID:       creatorID,
		Title:           "Capacity test",
		StartAt:         time.Now().Add(24 * time.Hour),
		DurationMinutes: 60,
		Capacity:        capacity,
	})
	assert.NoError(s.T(), err)
	return session
}

// Many concurrent callers race for a small session; the confirmed count
// must land exactly at capacity, never above.
func (s *BookingRepositoryIntegrationTestSuite) TestCapacityInvariantUnderConcurrency() {
	creatorID := s.newUser(model.RoleCreator)
	session := s.newSession(creatorID, 3)

	const attempts = 10
	userIDs := make([]uuid.UUID, attempts)
	for i := range userIDs {
		userIDs[i] = s.newUser(model.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.bookings.CreateConfirmed(s.ctx, userIDs[i], session.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(s.T(), err, ErrSessionFull)
		}
	}
	assert.Equal(s.T(), 3, succeeded)

	details, err := s.sessions.DetailsByID(s.ctx, session.ID, uuid.Nil)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, details.AvailableSpots)
}

func (s *BookingRepositoryIntegrationTestSuite) TestDuplicateBookingRejected() {
	creatorID := s.newUser(model.RoleCreator)
	session := s.newSession(creatorID, 5)
	userID := s.newUser(model.RoleUser)

	_, err := s.bookings.CreateConfirmed(s.ctx, userID, session.ID)
	assert.NoError(s.T(), err)

	_, err = s.bookings.CreateConfirmed(s.ctx, userID, session.ID)
	assert.ErrorIs(s.T(), err, ErrAlreadyBooked)

	var count int
	err = s.db.GetContext(s.ctx, &count,
		`SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND session_id = $2`, userID, session.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

// A cancelled booking frees the seat for available_spots but its row
// still blocks the same user from re-booking.
func (s *BookingRepositoryIntegrationTestSuite) TestCancelReleasesSeatButBlocksRebooking() {
	creatorID := s.newUser(model.RoleCreator)
	session := s.newSession(creatorID, 1)
	userID := s.newUser(model.RoleUser)

	booking, err := s.bookings.CreateConfirmed(s.ctx, userID, session.ID)
	assert.NoError(s.T(), err)

	details, err := s.sessions.DetailsByID(s.ctx, session.ID, userID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, details.AvailableSpots)
	assert.True(s.T(), details.IsBookedByUser)

	assert.NoError(s.T(), s.bookings.Cancel(s.ctx, booking.ID))
	assert.ErrorIs(s.T(), s.bookings.Cancel(s.ctx, booking.ID), ErrNotConfirmed)

	details, err = s.sessions.DetailsByID(s.ctx, session.ID, userID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 1, details.AvailableSpots)
	assert.False(s.T(), details.IsBookedByUser)

	_, err = s.bookings.CreateConfirmed(s.ctx, userID, session.ID)
	assert.ErrorIs(s.T(), err, ErrAlreadyBooked)
}

func (s *BookingRepositoryIntegrationTestSuite) TestVisibilityLists() {
	creatorID := s.newUser(model.RoleCreator)
	otherCreatorID := s.newUser(model.RoleCreator)
	session := s.newSession(creatorID, 5)
	otherSession := s.newSession(otherCreatorID, 5)
	userID := s.newUser(model.RoleUser)

	_, err := s.bookings.CreateConfirmed(s.ctx, userID, session.ID)
	assert.NoError(s.T(), err)
	_, err = s.bookings.CreateConfirmed(s.ctx, userID, otherSession.ID)
	assert.NoError(s.T(), err)

	mine, err := s.bookings.ListByUser(s.ctx, userID)
	assert.NoError(s.T(), err)
	assert.Len(s.T(), mine, 2)

	audited, err := s.bookings.ListBySessionCreator(s.ctx, creatorID)
	assert.NoError(s.T(), err)
	assert.Len(s.T(), audited, 1)
	assert.Equal(s.T(), session.ID, audited[0].SessionID)
}

func TestBookingRepositoryIntegration(t *testing.T) {
	if os.Getenv("DOCKER_HOST") == "" {
		t.Skip("Docker is not available, skipping integration test.")
	}
	suite.Run(t, new(BookingRepositoryIntegrationTestSuite))
}
