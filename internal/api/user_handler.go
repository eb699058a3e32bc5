package api

import (
	"errors"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"marketplace-api/internal/s3"
	"marketplace-api/internal/service"
)

type UserHandler struct {
	authService service.AuthService
	presigner   *s3.AvatarPresigner
	validate    *validator.Validate
}

// NewUserHandler wires the profile endpoints. presigner may be nil when
// no object store is configured; the upload-url endpoint then declines.
func NewUserHandler(authService service.AuthService, presigner *s3.AvatarPresigner) *UserHandler {
	return &UserHandler{
		authService: authService,
		presigner:   presigner,
		validate:    validator.New(),
	}
}

type UserProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	caller := CurrentCaller(c)

	user, err := h.authService.GetUserProfile(c.Context(), caller.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch profile"})
	}

	return c.Status(fiber.StatusOK).JSON(UserProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// UpdateMeRequest holds the only self-editable fields. Role and username
// have no path through here on purpose.
type UpdateMeRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=2"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	caller := CurrentCaller(c)

	var req UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	user, err := h.authService.UpdateProfile(c.Context(), caller.ID, req.Name, req.AvatarURL)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update profile"})
	}

	return c.Status(fiber.StatusOK).JSON(UserProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

func (h *UserHandler) GetAvatarUploadURL(c *fiber.Ctx) error {
	if h.presigner == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Avatar uploads are not configured"})
	}

	caller := CurrentCaller(c)
	objectKey := "user-avatars/" + caller.ID.String() + "/" + uuid.New().String() + ".jpg"

	uploadURL, err := h.presigner.PresignedUploadURL(c.Context(), objectKey)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate upload URL"})
	}

	finalImageURL := os.Getenv("S3_ENDPOINT") + "/" + h.presigner.BucketName + "/" + objectKey

	return c.JSON(fiber.Map{
		"upload_url":      uploadURL,
		"final_image_url": finalImageURL,
	})
}
