package token_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/models"
	"github.com/shopbot/chatbot_api/internal/service/token"
)

func newService(t *testing.T) *token.TokenService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))

	return &token.TokenService{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
}

func TestIssuePairAndRefresh(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	access, refresh, err := svc.IssuePair(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	newAccess, err := svc.RefreshAccess(ctx, refresh)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEqual(t, access, newAccess)
}

func TestAccessTokensAreUnique(t *testing.T) {
	svc := newService(t)

	first, err := svc.SignAccessToken(1)
	require.NoError(t, err)
	second, err := svc.SignAccessToken(1)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestRevoke(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, refresh, err := svc.IssuePair(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, refresh))

	_, err = svc.RefreshAccess(ctx, refresh)
	require.ErrorIs(t, err, token.ErrInvalidRefresh)

	// a blacklisted token cannot be revoked twice
	require.ErrorIs(t, svc.Revoke(ctx, refresh), token.ErrInvalidRefresh)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.RefreshAccess(ctx, "not-a-jwt")
	require.ErrorIs(t, err, token.ErrInvalidRefresh)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	access, _, err := svc.IssuePair(ctx, 3)
	require.NoError(t, err)

	// access tokens are signed with a different secret and carry no typ
	_, err = svc.RefreshAccess(ctx, access)
	require.ErrorIs(t, err, token.ErrInvalidRefresh)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, refresh, err := svc.IssuePair(ctx, 5)
	require.NoError(t, err)

	// wipe the revocation list, a token without a row is not honored
	require.NoError(t, svc.DB.Where("1 = 1").Delete(&models.RefreshToken{}).Error)

	_, err = svc.RefreshAccess(ctx, refresh)
	require.ErrorIs(t, err, token.ErrInvalidRefresh)
}
