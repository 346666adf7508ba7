package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zidanindratama/be-gunasmash/config"
)

// Token type markers embedded in claims so refresh tokens cannot be replayed
// as access tokens.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT for the specified user identity.
func GenerateToken(userID uint, role, tokenType string, duration time.Duration) (string, error) {
	cfg := config.Get()

	claims := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// TokenPair issues an access and refresh token pair for a user.
func TokenPair(userID uint, role string) (access string, refresh string, err error) {
	cfg := config.Get()
	access, err = GenerateToken(userID, role, TokenAccess, cfg.AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = GenerateToken(userID, role, TokenRefresh, cfg.RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
