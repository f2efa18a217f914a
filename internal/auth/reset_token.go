package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ResetTokenManager issues and validates the signed password-reset tokens
// mailed to users. Tokens are stateless; expiry is the only revocation.
type ResetTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewResetTokenManager builds a manager with the given TTL in minutes.
func NewResetTokenManager(secret string, ttlMinutes int) *ResetTokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}
	return &ResetTokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

type resetClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Generate signs a reset token for the user.
func (m *ResetTokenManager) Generate(userID int64) (string, error) {
	now := time.Now()
	claims := &resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "password_reset",
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a reset token and returns the user it was issued for.
func (m *ResetTokenManager) Validate(tokenStr string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &resetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(*resetClaims)
	if !ok || !parsed.Valid || claims.Subject != "password_reset" {
		return 0, errors.New("invalid reset token")
	}
	return claims.UserID, nil
}
