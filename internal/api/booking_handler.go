package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"marketplace-api/internal/service"
)

type BookingHandler struct {
	bookingService service.BookingService
	validate       *validator.Validate
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		validate:       validator.New(),
	}
}

type CreateBookingRequest struct {
	SessionID uuid.UUID `json:"session_id" validate:"required"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var request CreateBookingRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	booking, err := h.bookingService.CreateBooking(c.Context(), CurrentCaller(c), request.SessionID)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrSessionFull):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyBooked):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			slog.ErrorContext(c.UserContext(), "Error creating booking", slog.String("error", err.Error()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create booking"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	bookings, err := h.bookingService.ListBookings(c.Context(), CurrentCaller(c))
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Error listing bookings", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch bookings"})
	}

	return c.Status(fiber.StatusOK).JSON(bookings)
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	booking, err := h.bookingService.GetBooking(c.Context(), bookingID, CurrentCaller(c))
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
		}
		slog.ErrorContext(c.UserContext(), "Error getting booking", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch booking"})
	}

	return c.Status(fiber.StatusOK).JSON(booking)
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	err = h.bookingService.CancelBooking(c.Context(), bookingID, CurrentCaller(c))

	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
		case errors.Is(err, service.ErrNotBookingOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "Only the booking's owner can cancel it",
			})
		case errors.Is(err, service.ErrAlreadyCancelled):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			slog.ErrorContext(c.UserContext(), "Error cancelling booking", slog.String("error", err.Error()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not cancel booking"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Booking cancelled"})
}
