package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/tasks"
)

// @Summary Generate report
// @Description Queue a prediction-summary report build for the current user
// @Tags reports
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Router /api/generate_report [post]
func (s *Server) generateReport(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.CreatePending(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create report")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create report"})
		return
	}

	task, err := tasks.NewBuildReportTask(report.ID, sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build report task")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to queue report"})
		return
	}

	if _, err := s.asynqClient.Enqueue(task); err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue report task")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to queue report"})
		return
	}

	s.logger.Info().Str("report_id", report.ID).Str("user_id", sessionData.UserID).Msg("Report build queued")

	c.JSON(http.StatusAccepted, gin.H{"success": true, "report": report})
}

// @Summary List reports
// @Description The current user's reports, newest first
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/user/reports [get]
func (s *Server) listReports(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	reports, err := s.reportsService.ListForUser(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reports": reports})
}

// @Summary Get report
// @Description One report owned by the current user
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/reports/{id} [get]
func (s *Server) getReport(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.Get(sessionData.UserID, c.Param("id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Report not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load report")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// @Summary Delete report
// @Description Delete a report owned by the current user
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/reports/{id} [delete]
func (s *Server) deleteReport(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	reportID := c.Param("id")

	if err := s.reportsService.Delete(sessionData.UserID, reportID); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Report not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to delete report")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete report"})
		return
	}

	s.logger.Info().Str("report_id", reportID).Str("user_id", sessionData.UserID).Msg("Report deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
