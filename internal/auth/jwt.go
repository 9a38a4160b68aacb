package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var signingSecret []byte

// SessionClaims represents the claims carried by a session cookie token
type SessionClaims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// InitializeSigning sets the session token signing secret
func InitializeSigning(secret string) {
	signingSecret = []byte(secret)
}

// GenerateSessionToken creates a signed token binding a session record to a user
func GenerateSessionToken(sessionID, userID, username, role string, ttl time.Duration) (string, error) {
	if len(signingSecret) == 0 {
		return "", fmt.Errorf("session signing secret not initialized")
	}

	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingSecret)
}

// ValidateSessionToken validates a session token and returns the claims
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	if len(signingSecret) == 0 {
		return nil, fmt.Errorf("session signing secret not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
