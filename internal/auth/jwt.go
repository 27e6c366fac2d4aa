package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the structured data we store in the JWT. The user ID is the
// only identity fact the token carries; roles and department membership are
// resolved server-side on every request.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), tokenTTL: tokenTTL}
}

// GenerateToken creates a new JWT access token
func (tm *TokenManager) GenerateToken(userID uuid.UUID) (string, error) {
	expirationTime := time.Now().Add(tm.tokenTTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Subject:   userID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
