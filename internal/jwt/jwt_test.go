package jwt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	appjwt "marketplace-api/internal/jwt"
	"marketplace-api/internal/model"
)

func TestGenerateAndValidateTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &model.User{ID: uuid.New(), Username: "alice", Role: model.RoleCreator}

	access, refresh, err := appjwt.GenerateTokens(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, access, refresh)

	claims, err := appjwt.ValidateToken(access)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims["sub"])
	require.Equal(t, "alice", claims["username"])
	require.Equal(t, model.RoleCreator, claims["role"])

	refreshClaims, err := appjwt.ValidateToken(refresh)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), refreshClaims["sub"])
	require.Nil(t, refreshClaims["role"])
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	access, _, err := appjwt.GenerateTokens(&model.User{ID: uuid.New(), Username: "bob", Role: model.RoleUser})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = appjwt.ValidateToken(access)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	_, err := appjwt.ValidateToken("not-a-token")
	require.Error(t, err)
}
