package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/anonymize"
	"github.com/diatrack-dev/diatrack/internal/models"
)

// replayIdempotent checks the Idempotency-Key header against recorded
// operations. Returns true when the request was already executed and a
// replayed response has been written.
func (s *Server) replayIdempotent(c *gin.Context, scope, resourceID string) bool {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		return false
	}

	var record models.IdempotencyKey
	err := s.db.Where("key = ? AND scope = ?", key, scope).First(&record).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Error().Err(err).Msg("Failed to check idempotency key")
		}
		return false
	}

	if record.ResourceID != resourceID {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Idempotency key was used for a different resource"})
		return true
	}

	c.JSON(record.StatusCode, gin.H{"success": true, "replayed": true})
	return true
}

// recordIdempotent stores the outcome of a completed destructive
// operation for later replay
func (s *Server) recordIdempotent(c *gin.Context, scope, resourceID string, statusCode int) {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		return
	}

	record := &models.IdempotencyKey{
		Key:        key,
		Scope:      scope,
		ResourceID: resourceID,
		StatusCode: statusCode,
	}
	if err := s.db.Create(record).Error; err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Msg("Failed to record idempotency key")
	}
}

// @Summary List users
// @Description All accounts (admin only)
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	details := make([]*UserDetail, len(users))
	for i := range users {
		details[i] = userDetail(&users[i])
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "users": details})
}

// @Summary Admin stats
// @Description Live counters plus the most recent scheduled snapshot (admin only)
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/stats [get]
func (s *Server) getStats(c *gin.Context) {
	stats, err := s.predictionsService.ComputeStats()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute stats")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	response := gin.H{"success": true, "stats": stats}

	var snapshot models.StatsSnapshot
	if err := s.db.Order("created_at DESC").First(&snapshot).Error; err == nil {
		response["last_snapshot"] = snapshot
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Delete user
// @Description Delete an account and revoke its sessions (admin only, cannot delete self)
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Param Idempotency-Key header string false "Idempotency key"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/admin/users/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	userID := c.Param("id")

	sessionData, _ := GetSessionData(c)

	// Prevent deleting self
	if userID == sessionData.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cannot delete yourself"})
		return
	}

	if s.replayIdempotent(c, "admin:delete_user", userID) {
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	if err := s.db.Delete(&user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete user"})
		return
	}

	// Any live sessions for the account die with it
	if err := s.sessions.InvalidateAllForUser(c.Request.Context(), userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to revoke deleted user's sessions")
	}

	s.recordIdempotent(c, "admin:delete_user", userID, http.StatusOK)

	s.logger.Info().
		Str("user_id", userID).
		Str("deleted_by", sessionData.UserID).
		Msg("User deleted")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary List patients
// @Description Non-admin accounts with their latest prediction (admin only)
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/patients [get]
func (s *Server) listPatients(c *gin.Context) {
	var patients []models.User
	if err := s.db.Where("role <> ?", models.RoleAdmin).
		Order("created_at DESC").Find(&patients).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list patients")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	out := make([]gin.H, 0, len(patients))
	for i := range patients {
		entry := gin.H{"patient": userDetail(&patients[i])}
		if latest, err := s.predictionsService.Latest(patients[i].ID); err == nil {
			entry["latest_prediction"] = latest
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "patients": out})
}

// @Summary Patient predictions
// @Description One patient's full prediction history (admin only)
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/admin/patients/{id}/predictions [get]
func (s *Server) listPatientPredictions(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := s.db.Where("id = ?", patientID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Patient not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find patient")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	predictions, err := s.predictionsService.ListForUser(patientID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list patient predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"patient":     userDetail(&patient),
		"predictions": predictions,
	})
}

// @Summary Export patients
// @Description Anonymized patient export with per-patient prediction counters (admin only)
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/export [get]
func (s *Server) exportPatients(c *gin.Context) {
	var patients []models.User
	if err := s.db.Where("role <> ?", models.RoleAdmin).
		Order("created_at ASC").Find(&patients).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load patients for export")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	records := make([]map[string]interface{}, 0, len(patients))
	for i := range patients {
		p := &patients[i]

		var predictionCount int64
		s.db.Model(&models.Prediction{}).Where("user_id = ?", p.ID).Count(&predictionCount)

		records = append(records, map[string]interface{}{
			"username":    p.Username,
			"full_name":   p.FullName,
			"email":       p.Email,
			"contact":     p.Contact,
			"address":     p.Address,
			"registered":  p.CreatedAt,
			"predictions": predictionCount,
		})
	}

	anonymize.Apply(records, anonymize.DefaultRules())

	c.JSON(http.StatusOK, gin.H{"success": true, "patients": records})
}
