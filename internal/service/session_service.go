package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"marketplace-api/internal/authz"
	"marketplace-api/internal/events"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another creator")
)

type SessionService interface {
	ListSessions(ctx context.Context, viewer *authz.Caller) ([]model.SessionDetails, error)
	GetSession(ctx context.Context, sessionID uuid.UUID, viewer *authz.Caller) (*model.SessionDetails, error)
	ListMySessions(ctx context.Context, caller *authz.Caller) ([]model.SessionDetails, error)
	CreateSession(ctx context.Context, session *model.Session) (*model.Session, error)
	UpdateSession(ctx context.Context, sessionID uuid.UUID, caller *authz.Caller, update *model.Session) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID, caller *authz.Caller) error
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	publisher   events.EventPublisher
}

func NewSessionService(repo repository.SessionRepository, pub events.EventPublisher) SessionService {
	return &sessionService{sessionRepo: repo, publisher: pub}
}

func viewerID(viewer *authz.Caller) uuid.UUID {
	if viewer == nil {
		return uuid.Nil
	}
	return viewer.ID
}

func (s *sessionService) ListSessions(ctx context.Context, viewer *authz.Caller) ([]model.SessionDetails, error) {
	return s.sessionRepo.ListAll(ctx, viewerID(viewer))
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uuid.UUID, viewer *authz.Caller) (*model.SessionDetails, error) {
	details, err := s.sessionRepo.DetailsByID(ctx, sessionID, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrSessionNotFound
	}
	return details, nil
}

func (s *sessionService) ListMySessions(ctx context.Context, caller *authz.Caller) ([]model.SessionDetails, error) {
	return s.sessionRepo.ListByCreator(ctx, caller.ID, caller.ID)
}

func (s *sessionService) CreateSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	createdSession, err := s.sessionRepo.Create(ctx, session)

	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.publisher.PublishSessionCreated(createdSession); err != nil {
			slog.Error("publishing session.created", slog.String("error", err.Error()))
		}
	}()

	return createdSession, nil
}

func (s *sessionService) UpdateSession(ctx context.Context, sessionID uuid.UUID, caller *authz.Caller, update *model.Session) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if !authz.CanManageSession(caller, session) {
		return nil, ErrNotSessionOwner
	}

	session.Title = update.Title
	session.Description = update.Description
	session.StartAt = update.StartAt
	session.DurationMinutes = update.DurationMinutes
	session.Capacity = update.Capacity
	session.PriceCents = update.PriceCents

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, sessionID uuid.UUID, caller *authz.Caller) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if !authz.CanManageSession(caller, session) {
		return ErrNotSessionOwner
	}

	return s.sessionRepo.Delete(ctx, sessionID)
}
