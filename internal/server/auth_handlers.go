package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/auth"
	"github.com/diatrack-dev/diatrack/internal/models"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

func userDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// setSessionCookie writes the HTTP-only session cookie
func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		s.config.Session.CookieName,
		token,
		int(s.config.Session.TTL.Seconds()),
		"/",
		"",
		s.config.Session.CookieSecure,
		true,
	)
}

// clearSessionCookie expires the session cookie
func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.Session.CookieName, "", -1, "/", "", s.config.Session.CookieSecure, true)
}

// @Summary Register
// @Description Create a new patient account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All required fields must be filled"})
		return
	}

	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Password must be at least 6 characters"})
		return
	}

	if err := s.validator.Var(req.Username, "username"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username may only contain letters, digits, '-', '_' and '.'"})
		return
	}

	// Uniqueness check up front for a friendly message; the unique
	// index still backstops races
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing users")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username or email already registered"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create account"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Contact:      req.Contact,
		Address:      req.Address,
		Role:         models.RoleUser,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create account"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Registration successful. Please log in.",
		"redirect": "/login",
	})
}

// @Summary Login
// @Description Authenticate with username and password; sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username and password are required"})
		return
	}

	// Find user by username
	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	// Verify password
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	// Create the server-held session record, then the cookie token bound to it
	record, err := s.sessions.Create(c.Request.Context(), user.ID, user.Username, user.Role, s.config.Session.TTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create session"})
		return
	}

	token, err := auth.GenerateSessionToken(record.SessionID, user.ID, user.Username, user.Role, s.config.Session.TTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate session token")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create session"})
		return
	}

	s.setSessionCookie(c, token)

	redirect := "/user/predict"
	if user.IsAdmin() {
		redirect = "/admin/dashboard"
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Login successful",
		"role":     user.Role,
		"redirect": redirect,
	})
}

// @Summary Logout
// @Description Revoke the current session and clear the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/logout [post]
func (s *Server) logout(c *gin.Context) {
	// Best effort: an invalid or absent session still logs "out"
	if sessionData, err := resolveSession(c, s.db, s.sessions, s.config.Session.CookieName); err == nil {
		if err := s.sessions.Invalidate(c.Request.Context(), sessionData.UserID, sessionData.SessionID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to revoke session")
		}
	}

	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Session introspection
// @Description Report whether the caller holds a live session
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	sessionData, err := resolveSession(c, s.db, s.sessions, s.config.Session.CookieName)
	if err != nil {
		// Fail-closed: every failure mode reads as "not authenticated"
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"authenticated": true,
		"user":          userDetail(&user),
	})
}
