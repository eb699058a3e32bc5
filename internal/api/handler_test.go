package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace-api/internal/api"
	"marketplace-api/internal/authz"
	"marketplace-api/internal/jwt"
	"marketplace-api/internal/model"
	"marketplace-api/internal/oauth"
	"marketplace-api/internal/service"
)

type stubSessionService struct {
	sessions []model.SessionDetails
	created  *model.Session
}

func (s *stubSessionService) ListSessions(context.Context, *authz.Caller) ([]model.SessionDetails, error) {
	return s.sessions, nil
}

func (s *stubSessionService) GetSession(_ context.Context, sessionID uuid.UUID, _ *authz.Caller) (*model.SessionDetails, error) {
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			return &s.sessions[i], nil
		}
	}
	return nil, service.ErrSessionNotFound
}

func (s *stubSessionService) ListMySessions(context.Context, *authz.Caller) ([]model.SessionDetails, error) {
	return s.sessions, nil
}

func (s *stubSessionService) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	session.ID = uuid.New()
	s.created = session
	return session, nil
}

func (s *stubSessionService) UpdateSession(_ context.Context, _ uuid.UUID, _ *authz.Caller, update *model.Session) (*model.Session, error) {
	return update, nil
}

func (s *stubSessionService) DeleteSession(context.Context, uuid.UUID, *authz.Caller) error {
	return nil
}

type stubBookingService struct {
	createErr error
	cancelErr error
}

func (s *stubBookingService) CreateBooking(_ context.Context, caller *authz.Caller, sessionID uuid.UUID) (*model.Booking, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &model.Booking{ID: uuid.New(), UserID: caller.ID, SessionID: sessionID, Status: model.BookingConfirmed}, nil
}

func (s *stubBookingService) GetBooking(context.Context, uuid.UUID, *authz.Caller) (*model.BookingDetails, error) {
	return nil, service.ErrBookingNotFound
}

func (s *stubBookingService) ListBookings(context.Context, *authz.Caller) ([]model.BookingDetails, error) {
	return []model.BookingDetails{}, nil
}

func (s *stubBookingService) CancelBooking(context.Context, uuid.UUID, *authz.Caller) error {
	return s.cancelErr
}

type stubAuthService struct{}

func (s *stubAuthService) RegisterUser(context.Context, string, string, string) (*model.User, error) {
	return &model.User{ID: uuid.New()}, nil
}

func (s *stubAuthService) LoginUser(context.Context, string, string) (*service.TokenPair, *model.User, error) {
	return nil, nil, service.ErrInvalidCredentials
}

func (s *stubAuthService) MockLogin(_ context.Context, username, role string) (*service.TokenPair, *model.User, error) {
	if !model.ValidRole(role) {
		return nil, nil, service.ErrInvalidRole
	}
	return &service.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
		&model.User{ID: uuid.New(), Username: username, Role: role}, nil
}

func (s *stubAuthService) CompleteOAuth(context.Context, *oauth.Profile) (*service.TokenPair, *model.User, error) {
	return nil, nil, nil
}

func (s *stubAuthService) GetUserProfile(context.Context, uuid.UUID) (*model.User, error) {
	return nil, service.ErrUserNotFound
}

func (s *stubAuthService) UpdateProfile(context.Context, uuid.UUID, *string, *string) (*model.User, error) {
	return nil, service.ErrUserNotFound
}

func (s *stubAuthService) RefreshToken(context.Context, string) (string, error) {
	return "", service.ErrTokenInvalid
}

func (s *stubAuthService) LogoutUser(context.Context, string) error {
	return nil
}

func newTestApp(sessions *stubSessionService, bookings *stubBookingService) *fiber.App {
	app := fiber.New()

	sessionHandler := api.NewSessionHandler(sessions)
	bookingHandler := api.NewBookingHandler(bookings)

	v1 := app.Group("/v1")
	sessionGroup := v1.Group("/sessions")
	sessionGroup.Get("/my_sessions", api.AuthMiddleware(), sessionHandler.ListMySessions)
	sessionGroup.Get("/", api.OptionalAuthMiddleware(), sessionHandler.ListSessions)
	sessionGroup.Get("/:id", api.OptionalAuthMiddleware(), sessionHandler.GetSession)
	sessionGroup.Post("/", api.AuthMiddleware(), sessionHandler.CreateSession)

	bookingGroup := v1.Group("/bookings", api.AuthMiddleware())
	bookingGroup.Post("/", bookingHandler.CreateBooking)
	bookingGroup.Delete("/:id", bookingHandler.CancelBooking)

	return app
}

func accessTokenFor(t *testing.T, role string) string {
	t.Helper()
	access, _, err := jwt.GenerateTokens(&model.User{ID: uuid.New(), Username: "tester", Role: role})
	require.NoError(t, err)
	return access
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestListSessions_AnonymousGets200(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	sessions := &stubSessionService{sessions: []model.SessionDetails{
		{ID: uuid.New(), Title: "Open class", AvailableSpots: 3, IsBookedByUser: false},
	}}
	app := newTestApp(sessions, &stubBookingService{})

	resp := doJSON(t, app, http.MethodGet, "/v1/sessions/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []map[string]any
	decodeBody(t, resp, &body)
	require.Len(t, body, 1)
	require.Equal(t, false, body[0]["is_booked_by_user"])
}

func TestCreateSession_RequiresCreatorRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	payload := map[string]any{
		"title":            "Pottery 101",
		"start_at":         time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"duration_minutes": 60,
		"capacity":         5,
	}

	resp := doJSON(t, app, http.MethodPost, "/v1/sessions/", "", payload)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/v1/sessions/", accessTokenFor(t, model.RoleUser), payload)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/v1/sessions/", accessTokenFor(t, model.RoleCreator), payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateSession_RejectsInvalidBody(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	// capacity missing entirely
	payload := map[string]any{
		"title":            "Pottery 101",
		"start_at":         time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"duration_minutes": 60,
	}
	resp := doJSON(t, app, http.MethodPost, "/v1/sessions/", accessTokenFor(t, model.RoleCreator), payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSession_BadID(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	resp := doJSON(t, app, http.MethodGet, "/v1/sessions/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMySessions_RouteBeatsIDWildcard(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	// would be a 400 if my_sessions were parsed as a session ID
	resp := doJSON(t, app, http.MethodGet, "/v1/sessions/my_sessions", accessTokenFor(t, model.RoleCreator), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateBooking_ConflictOnFullSession(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{createErr: service.ErrSessionFull})

	resp := doJSON(t, app, http.MethodPost, "/v1/bookings/",
		accessTokenFor(t, model.RoleUser), map[string]any{"session_id": uuid.New()})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "this session is fully booked", body["error"])
}

func TestCreateBooking_RequiresAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	resp := doJSON(t, app, http.MethodPost, "/v1/bookings/", "", map[string]any{"session_id": uuid.New()})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCancelBooking_ForbiddenForNonOwner(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{cancelErr: service.ErrNotBookingOwner})

	resp := doJSON(t, app, http.MethodDelete, "/v1/bookings/"+uuid.NewString(),
		accessTokenFor(t, model.RoleUser), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMockLogin_ResponseShape(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := fiber.New()
	handler := api.NewAuthHandler(&stubAuthService{}, nil)
	app.Post("/v1/auth/mock-login", handler.MockLogin)

	resp := doJSON(t, app, http.MethodPost, "/v1/auth/mock-login", "",
		map[string]any{"username": "demo", "role": "CREATOR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "acc", body["access"])
	require.Equal(t, "ref", body["refresh"])
	require.Equal(t, "CREATOR", body["role"])
	require.Equal(t, "demo", body["username"])
}

func TestMockLogin_RejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := fiber.New()
	handler := api.NewAuthHandler(&stubAuthService{}, nil)
	app.Post("/v1/auth/mock-login", handler.MockLogin)

	resp := doJSON(t, app, http.MethodPost, "/v1/auth/mock-login", "",
		map[string]any{"username": "demo", "role": "ADMIN"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpiredToken_Rejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	claims := jwtv5.MapClaims{
		"sub":      uuid.NewString(),
		"username": "tester",
		"role":     model.RoleCreator,
		"exp":      time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/v1/sessions/my_sessions", expired, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "Token has expired", body["error"])
}

func TestMalformedToken_Rejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubSessionService{}, &stubBookingService{})

	resp := doJSON(t, app, http.MethodGet, "/v1/sessions/my_sessions", "not.a.token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "Invalid token", body["error"])
}
