package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/auth"
	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/session"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingCredentials = errors.New("missing session cookie or authorization header")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrUserNotFound       = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated session attached to the request
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	s, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := s.(*auth.SessionData)
	return sessionData, ok
}

// extractToken pulls the session token from the cookie or, for
// non-browser clients, from the Authorization header
func extractToken(c *gin.Context, cookieName string) (string, error) {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, nil
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		if token := strings.TrimPrefix(authHeader, bearerPrefix); token != "" {
			return token, nil
		}
	}

	return "", ErrMissingCredentials
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// resolveSession validates a token against the signing secret and the
// server-held session record, then confirms the user still exists.
// Used by both the auth middleware and the introspection endpoint.
func resolveSession(c *gin.Context, db *gorm.DB, sessions SessionStore, cookieName string) (*auth.SessionData, error) {
	token, err := extractToken(c, cookieName)
	if err != nil {
		return nil, err
	}

	claims, err := auth.ValidateSessionToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// The token may be valid cryptographically but revoked server-side
	if _, err := sessions.Get(c.Request.Context(), claims.UserID, claims.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}

	var user models.User
	if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}

	return &auth.SessionData{
		SessionID: claims.SessionID,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// SessionAuthMiddleware validates the session cookie (or bearer token)
// on every request in the authenticated group
func SessionAuthMiddleware(db *gorm.DB, sessions SessionStore, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := resolveSession(c, db, sessions, cookieName)
		if err != nil {
			var message string
			switch {
			case errors.Is(err, ErrMissingCredentials):
				message = "Authentication required"
			case errors.Is(err, ErrInvalidToken):
				message = "Invalid or expired token"
			case errors.Is(err, ErrSessionRevoked):
				message = "Session expired"
			case errors.Is(err, ErrUserNotFound):
				message = "User not found"
			default:
				message = "Authentication failed"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		setSession(c, sessionData)
		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin() {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
