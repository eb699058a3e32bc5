package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketplace-api/internal/jwt"
	"marketplace-api/internal/model"
	"marketplace-api/internal/oauth"
	"marketplace-api/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("role must be USER or CREATOR")
)

// TokenPair is the bearer pair handed out by every login path.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, username, password, name string) (*model.User, error)
	LoginUser(ctx context.Context, username, password string) (*TokenPair, *model.User, error)
	MockLogin(ctx context.Context, username, role string) (*TokenPair, *model.User, error)
	CompleteOAuth(ctx context.Context, profile *oauth.Profile) (*TokenPair, *model.User, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, avatarURL *string) (*model.User, error)
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error)
	LogoutUser(ctx context.Context, refreshTokenString string) error
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
}

func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
	}
}

func (s *authService) RegisterUser(ctx context.Context, username, password, name string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         model.RoleUser,
	}

	newID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	user.ID = newID

	return user, nil
}

func (s *authService) LoginUser(ctx context.Context, username, password string) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	// An empty hash is the unusable-password marker left by mock login
	// and OAuth provisioning; those accounts never pass a password login.
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// MockLogin upserts a user by username and returns a token pair. The
// role applies only when the account is created; an existing user keeps
// whatever role they already have.
func (s *authService) MockLogin(ctx context.Context, username, role string) (*TokenPair, *model.User, error) {
	if !model.ValidRole(role) {
		return nil, nil, ErrInvalidRole
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		user = &model.User{
			Username:     username,
			PasswordHash: "",
			Name:         username,
			Role:         role,
		}

		newID, err := s.userRepo.Create(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		user.ID = newID
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// CompleteOAuth provisions the user on first login with the identity the
// provider vouched for, then mints the same token pair as any other path.
// Provider identities live in their own username namespace
// ("github:alice"), so an OAuth login can never attach to a local account
// that happens to share the provider-side name.
func (s *authService) CompleteOAuth(ctx context.Context, profile *oauth.Profile) (*TokenPair, *model.User, error) {
	username := profile.Provider + ":" + profile.Username

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		name := profile.Name
		if name == "" {
			name = profile.Username
		}

		user = &model.User{
			Username:     username,
			PasswordHash: "",
			Name:         name,
			AvatarURL:    profile.AvatarURL,
			Role:         model.RoleUser,
		}

		newID, err := s.userRepo.Create(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		user.ID = newID
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, refreshToken, err := jwt.GenerateTokens(user)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256([]byte(refreshToken))
	tokenHash := hex.EncodeToString(hash[:])

	refreshTokenModel := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(jwt.RefreshTTL()),
	}

	if err := s.tokenRepo.Create(ctx, refreshTokenModel); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, avatarURL *string) (*model.User, error) {
	user, err := s.userRepo.UpdateProfile(ctx, userID, name, avatarURL)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	claims, err := jwt.ValidateToken(refreshTokenString)

	if err != nil {
		return "", ErrTokenInvalid
	}

	hash := sha256.Sum256([]byte(refreshTokenString))
	tokenHash := hex.EncodeToString(hash[:])

	if _, err := s.tokenRepo.FindByTokenHash(ctx, tokenHash); err != nil {
		return "", ErrTokenInvalid
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return "", ErrTokenInvalid
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return "", ErrTokenInvalid
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return "", ErrTokenInvalid
	}

	newAccessToken, _, err := jwt.GenerateTokens(user)

	if err != nil {
		return "", err
	}

	return newAccessToken, nil
}

func (s *authService) LogoutUser(ctx context.Context, refreshTokenString string) error {
	hash := sha256.Sum256([]byte(refreshTokenString))
	tokenHash := hex.EncodeToString(hash[:])

	return s.tokenRepo.Delete(ctx, tokenHash)
}
