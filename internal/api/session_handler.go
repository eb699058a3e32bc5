package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"marketplace-api/internal/authz"
	"marketplace-api/internal/model"
	"marketplace-api/internal/service"
)

type SessionHandler struct {
	sessionService service.SessionService
	validate       *validator.Validate
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		validate:       validator.New(),
	}
}

type SessionRequest struct {
	Title           string    `json:"title" validate:"required,min=1,max=255"`
	Description     string    `json:"description,omitempty" validate:"max=2000"`
	StartAt         time.Time `json:"start_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	Capacity        *int      `json:"capacity" validate:"required,gte=0"`
	PriceCents      *int64    `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
}

func (r *SessionRequest) toModel() *model.Session {
	session := &model.Session{
		Title:           r.Title,
		Description:     r.Description,
		StartAt:         r.StartAt,
		DurationMinutes: r.DurationMinutes,
		Capacity:        *r.Capacity,
	}
	if r.PriceCents != nil {
		session.PriceCents = *r.PriceCents
	}
	return session
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.sessionService.ListSessions(c.Context(), CurrentCaller(c))
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Error listing sessions", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch sessions"})
	}

	return c.Status(fiber.StatusOK).JSON(sessions)
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID format"})
	}

	session, err := h.sessionService.GetSession(c.Context(), sessionID, CurrentCaller(c))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		slog.ErrorContext(c.UserContext(), "Error getting session", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch session"})
	}

	return c.Status(fiber.StatusOK).JSON(session)
}

func (h *SessionHandler) ListMySessions(c *fiber.Ctx) error {
	caller := CurrentCaller(c)
	if !authz.CanPublishSessions(caller) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "Forbidden",
			"message": "Only creators have sessions of their own",
		})
	}

	sessions, err := h.sessionService.ListMySessions(c.Context(), caller)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch sessions"})
	}

	return c.Status(fiber.StatusOK).JSON(sessions)
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	caller := CurrentCaller(c)
	if !authz.CanPublishSessions(caller) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "Forbidden",
			"message": "Only creators can create sessions",
		})
	}

	var request SessionRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	session := request.toModel()
	session.CreatorID = caller.ID

	createdSession, err := h.sessionService.CreateSession(c.Context(), session)

	if err != nil {
		slog.ErrorContext(c.UserContext(), "Error creating session", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create session"})
	}

	return c.Status(fiber.StatusCreated).JSON(createdSession)
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID format"})
	}

	var request SessionRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	session, err := h.sessionService.UpdateSession(c.Context(), sessionID, CurrentCaller(c), request.toModel())
	if err != nil {
		return sessionWriteError(c, err, "Could not update session")
	}

	return c.Status(fiber.StatusOK).JSON(session)
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID format"})
	}

	if err := h.sessionService.DeleteSession(c.Context(), sessionID, CurrentCaller(c)); err != nil {
		return sessionWriteError(c, err, "Could not delete session")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func sessionWriteError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, service.ErrNotSessionOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "Forbidden",
			"message": "Only the session's creator can modify it",
		})
	default:
		slog.ErrorContext(c.UserContext(), fallback, slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
