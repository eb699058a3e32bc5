package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"marketplace-api/internal/oauth"
	"marketplace-api/internal/service"
)

const (
	stateCookie    = "oauth_state"
	providerCookie = "oauth_provider"
)

type AuthHandler struct {
	authService service.AuthService
	providers   map[string]*oauth.Provider
	validate    *validator.Validate
}

func NewAuthHandler(authService service.AuthService, providers map[string]*oauth.Provider) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		providers:   providers,
		validate:    validator.New(),
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var request RegisterRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "details": err.Error()})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	user, err := h.authService.RegisterUser(c.Context(), request.Username, request.Password, request.Name)

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not register user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request LoginRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	pair, user, err := h.authService.LoginUser(c.Context(), request.Username, request.Password)

	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not log in"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"role":          user.Role,
		"username":      user.Username,
	})
}

type MockLoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=150"`
	Role     string `json:"role" validate:"omitempty,oneof=USER CREATOR"`
}

// MockLogin upserts a user and hands out a token pair without any
// credential check. The route is only registered when DEBUG is on.
func (h *AuthHandler) MockLogin(c *fiber.Ctx) error {
	var request MockLoginRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	role := request.Role
	if role == "" {
		role = "USER"
	}

	pair, user, err := h.authService.MockLogin(c.Context(), request.Username, role)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not log in"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access":   pair.AccessToken,
		"refresh":  pair.RefreshToken,
		"role":     user.Role,
		"username": user.Username,
	})
}

// OAuthStart sends the browser to the provider's consent page. The state
// value and the chosen provider ride along in short-lived cookies so the
// completion endpoint can verify the round trip.
func (h *AuthHandler) OAuthStart(c *fiber.Ctx) error {
	provider, ok := h.providers[c.Params("provider")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown OAuth provider"})
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not start OAuth flow"})
	}
	state := hex.EncodeToString(buf)

	expires := time.Now().Add(10 * time.Minute)
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: state, Expires: expires, HTTPOnly: true})
	c.Cookie(&fiber.Cookie{Name: providerCookie, Value: provider.Name, Expires: expires, HTTPOnly: true})

	return c.Redirect(provider.AuthCodeURL(state), fiber.StatusFound)
}

// OAuthComplete finishes the handshake. The caller here is a browser
// following redirects, so every failure ends at the front-end login page
// with an error flag instead of a JSON body.
func (h *AuthHandler) OAuthComplete(c *fiber.Ctx) error {
	fail := func(reason string, err error) error {
		if err != nil {
			slog.ErrorContext(c.UserContext(), "OAuth completion failed",
				slog.String("reason", reason), slog.String("error", err.Error()))
		} else {
			slog.ErrorContext(c.UserContext(), "OAuth completion failed", slog.String("reason", reason))
		}
		return c.Redirect(frontendLoginURL()+"?error=auth_failed", fiber.StatusFound)
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		return fail("state mismatch", nil)
	}

	provider, ok := h.providers[c.Cookies(providerCookie)]
	if !ok {
		return fail("unknown provider in cookie", nil)
	}

	code := c.Query("code")
	if code == "" {
		return fail("missing authorization code", nil)
	}

	profile, err := provider.CompleteExchange(c.Context(), code)
	if err != nil {
		return fail("code exchange", err)
	}

	pair, user, err := h.authService.CompleteOAuth(c.Context(), profile)
	if err != nil {
		return fail("user provisioning", err)
	}

	c.ClearCookie(stateCookie, providerCookie)

	// Tokens travel as query parameters: the browser cannot read a JSON
	// response during a redirect chain.
	params := url.Values{}
	params.Set("access", pair.AccessToken)
	params.Set("refresh", pair.RefreshToken)
	params.Set("role", user.Role)
	params.Set("username", user.Username)

	slog.InfoContext(c.UserContext(), "OAuth login completed",
		slog.String("provider", provider.Name), slog.String("username", user.Username))

	return c.Redirect(frontendLoginURL()+"?"+params.Encode(), fiber.StatusFound)
}

func frontendLoginURL() string {
	base := os.Getenv("FRONTEND_URL")
	if base == "" {
		base = "http://localhost"
	}
	return base + "/login"
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	newAccessToken, err := h.authService.RefreshToken(c.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not refresh token"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"access_token": newAccessToken})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	if err := h.authService.LogoutUser(c.Context(), req.RefreshToken); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not log out"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Successfully logged out"})
}
