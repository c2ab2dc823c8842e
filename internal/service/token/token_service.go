package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/jwtutil"
	"github.com/shopbot/chatbot_api/internal/models"
	"github.com/shopbot/chatbot_api/internal/tokens"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

var ErrInvalidRefresh = errors.New("invalid refresh token")

type TokenService struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func (t *TokenService) SignAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := tokens.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jwtutil.NewJTI(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.JWTSecret)
}

func (t *TokenService) signRefreshToken(userID uint) (string, *tokens.RefreshClaims, error) {
	now := time.Now()
	claims := tokens.RefreshClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jwtutil.NewJTI(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// IssuePair mints a fresh access+refresh pair for the user and records
// the refresh token in the revocation list table.
func (t *TokenService) IssuePair(ctx context.Context, userID uint) (string, string, error) {
	access, err := t.SignAccessToken(userID)
	if err != nil {
		return "", "", err
	}

	refresh, claims, err := t.signRefreshToken(userID)
	if err != nil {
		return "", "", err
	}

	stored := models.RefreshToken{
		TokenHash: jwtutil.Sha256Hex(refresh),
		JTI:       claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if err := t.DB.WithContext(ctx).Create(&stored).Error; err != nil {
		return "", "", fmt.Errorf("db error: %w", err)
	}

	return access, refresh, nil
}

// validateRefresh accepts only tokens that carry a valid signature, the
// refresh type claim, a known revocation-list row that is neither revoked
// nor expired.
func (t *TokenService) validateRefresh(ctx context.Context, rawToken string) (*tokens.RefreshClaims, error) {
	claims, err := tokens.RefreshClaimsFromToken(rawToken, t.RefreshSecret)
	if err != nil || claims == nil {
		return nil, ErrInvalidRefresh
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidRefresh
	}

	var stored models.RefreshToken
	result := t.DB.WithContext(ctx).
		Where("token_hash = ?", jwtutil.Sha256Hex(rawToken)).
		First(&stored)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("db error: %w", result.Error)
	}

	if stored.Revoked {
		return nil, ErrInvalidRefresh
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return nil, ErrInvalidRefresh
	}

	return claims, nil
}

// RefreshAccess exchanges a valid refresh token for a new access token.
// The refresh token itself is not rotated.
func (t *TokenService) RefreshAccess(ctx context.Context, rawToken string) (string, error) {
	claims, err := t.validateRefresh(ctx, rawToken)
	if err != nil {
		return "", err
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return "", ErrInvalidRefresh
	}

	return t.SignAccessToken(uint(userID))
}

// Revoke blacklists the refresh token. Already issued access tokens stay
// valid until their natural expiry.
func (t *TokenService) Revoke(ctx context.Context, rawToken string) error {
	if _, err := t.validateRefresh(ctx, rawToken); err != nil {
		return err
	}

	result := t.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", jwtutil.Sha256Hex(rawToken)).
		Update("revoked", true)
	if result.Error != nil {
		return fmt.Errorf("db error: %w", result.Error)
	}

	return nil
}
