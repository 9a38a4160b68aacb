package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/tasks"
)

// maxDocumentSize caps knowledge-base uploads at 20MB
const maxDocumentSize = 20 << 20

// ChatRequest represents a chatbot question
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// @Summary Ask the chatbot
// @Description Forward a question to the RAG service and store the exchange
// @Tags chatbot
// @Accept json
// @Produce json
// @Param request body ChatRequest true "Question"
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/chatbot [post]
func (s *Server) chatbotAsk(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Message is required"})
		return
	}

	answer, err := s.ragClient.Ask(c.Request.Context(), req.Message)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chatbot request failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "The medical assistant is currently unavailable. Please try again later.",
		})
		return
	}

	// History is best effort; the answer still goes out if storage hiccups
	exchange := []models.ChatMessage{
		{UserID: sessionData.UserID, Role: "user", Content: req.Message},
		{UserID: sessionData.UserID, Role: "assistant", Content: answer.Answer},
	}
	if err := s.db.Create(&exchange).Error; err != nil {
		s.logger.Warn().Err(err).Msg("Failed to store chat history")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"answer":  answer.Answer,
		"sources": answer.Sources,
	})
}

// @Summary Chat history
// @Description The current user's chatbot conversation, oldest first
// @Tags chatbot
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/chatbot/history [get]
func (s *Server) chatbotHistory(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var messages []models.ChatMessage
	if err := s.db.Where("user_id = ?", sessionData.UserID).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load chat history")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// @Summary Clear chat history
// @Description Delete the current user's chatbot conversation
// @Tags chatbot
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/chatbot/clear [post]
func (s *Server) chatbotClear(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	if err := s.db.Where("user_id = ?", sessionData.UserID).
		Delete(&models.ChatMessage{}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear chat history")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to clear history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary List knowledge-base documents
// @Description All uploaded chatbot documents (admin only)
// @Tags chatbot
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/chatbot/documents [get]
func (s *Server) listDocuments(c *gin.Context) {
	var documents []models.Document
	if err := s.db.Preload("UploadedBy").Order("created_at DESC").Find(&documents).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "documents": documents})
}

// @Summary Upload knowledge-base document
// @Description Spool an uploaded file and queue its RAG ingestion (admin only)
// @Tags chatbot
// @Accept mpfd
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/admin/chatbot/upload [post]
func (s *Server) uploadDocument(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A file is required"})
		return
	}

	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "File exceeds the 20MB limit"})
		return
	}

	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store file"})
		return
	}

	// Spool under a fresh name so concurrent uploads of the same
	// filename cannot clobber each other
	spoolName := fmt.Sprintf("%s_%s", ulid.Make().String(), filepath.Base(fileHeader.Filename))
	spoolPath := filepath.Join(s.config.UploadDir, spoolName)

	if err := c.SaveUploadedFile(fileHeader, spoolPath); err != nil {
		s.logger.Error().Err(err).Msg("Failed to spool uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store file"})
		return
	}

	doc := &models.Document{
		Filename:     filepath.Base(fileHeader.Filename),
		ContentType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes:    fileHeader.Size,
		StoragePath:  spoolPath,
		Status:       models.DocumentStatusUploaded,
		UploadedByID: sessionData.UserID,
	}
	if err := s.db.Create(doc).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create document record")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store file"})
		return
	}

	task, err := tasks.NewIngestDocumentTask(doc.ID)
	if err == nil {
		_, err = s.asynqClient.Enqueue(task)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to enqueue ingestion task")

		// Nothing will ever pick this document up, so mark it failed and
		// drop the spooled file rather than leave it looking queued
		updates := map[string]interface{}{
			"status": models.DocumentStatusFailed,
			"error":  "ingestion could not be queued",
		}
		if dbErr := s.db.Model(doc).Updates(updates).Error; dbErr != nil {
			s.logger.Error().Err(dbErr).Str("document_id", doc.ID).Msg("Failed to mark document failed")
		}
		if rmErr := os.Remove(spoolPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn().Err(rmErr).Str("path", spoolPath).Msg("Failed to remove spooled file")
		}

		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to queue ingestion"})
		return
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Str("uploaded_by", sessionData.UserID).
		Msg("Document uploaded")

	c.JSON(http.StatusAccepted, gin.H{"success": true, "document": doc})
}

// @Summary Delete knowledge-base document
// @Description Remove a document from the RAG index and local records (admin only)
// @Tags chatbot
// @Produce json
// @Param id path string true "Document ID"
// @Param Idempotency-Key header string false "Idempotency key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/admin/chatbot/documents/{id} [delete]
func (s *Server) deleteDocument(c *gin.Context) {
	docID := c.Param("id")

	if s.replayIdempotent(c, "admin:delete_document", docID) {
		return
	}

	var doc models.Document
	if err := s.db.Where("id = ?", docID).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Document not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find document")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	// Remove from the RAG index first; a dangling index entry is worse
	// than a dangling row
	if doc.Status == models.DocumentStatusIndexed {
		if err := s.ragClient.RemoveDocument(c.Request.Context(), doc.ID); err != nil {
			s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to remove document from RAG index")
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to remove document from the knowledge base"})
			return
		}
	}

	if err := s.db.Delete(&doc).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete document")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete document"})
		return
	}

	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", doc.StoragePath).Msg("Failed to remove spooled file")
		}
	}

	s.recordIdempotent(c, "admin:delete_document", docID, http.StatusOK)

	s.logger.Info().Str("document_id", doc.ID).Msg("Document deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
