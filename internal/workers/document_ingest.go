package workers

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/rag"
	"github.com/diatrack-dev/diatrack/internal/tasks"
)

// HandleIngestDocument forwards an uploaded knowledge-base document to
// the RAG service and updates its status. The spooled file is removed
// once the service has accepted it.
func HandleIngestDocument(ctx context.Context, t *asynq.Task, db *gorm.DB, ragClient *rag.Client, logger zerolog.Logger) error {
	payload, err := tasks.ParseIngestDocumentPayload(t)
	if err != nil {
		return err
	}

	log := logger.With().Str("document_id", payload.DocumentID).Logger()

	var doc models.Document
	if err := models.FindByID(db, payload.DocumentID, &doc); err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Warn().Msg("Document no longer exists, skipping ingestion")
			return nil
		}
		return err
	}

	if err := db.Model(&doc).Update("status", models.DocumentStatusIngesting).Error; err != nil {
		return err
	}

	file, err := os.Open(doc.StoragePath)
	if err != nil {
		log.Error().Err(err).Str("path", doc.StoragePath).Msg("Failed to open spooled document")
		return markFailed(db, &doc, err, log)
	}
	defer file.Close()

	if err := ragClient.IngestDocument(ctx, doc.ID, doc.Filename, file); err != nil {
		log.Error().Err(err).Msg("RAG ingestion failed")
		// Returning the error lets asynq retry transient RAG outages
		if updateErr := db.Model(&doc).Updates(map[string]interface{}{
			"status": models.DocumentStatusUploaded,
			"error":  err.Error(),
		}).Error; updateErr != nil {
			log.Error().Err(updateErr).Msg("Failed to reset document status")
		}
		return err
	}

	if err := db.Model(&doc).Updates(map[string]interface{}{
		"status": models.DocumentStatusIndexed,
		"error":  "",
	}).Error; err != nil {
		return err
	}

	// Spool file is no longer needed once indexed
	if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", doc.StoragePath).Msg("Failed to remove spooled document")
	}

	log.Info().Str("filename", doc.Filename).Msg("Document indexed")
	return nil
}

func markFailed(db *gorm.DB, doc *models.Document, cause error, log zerolog.Logger) error {
	if err := db.Model(doc).Updates(map[string]interface{}{
		"status": models.DocumentStatusFailed,
		"error":  cause.Error(),
	}).Error; err != nil {
		log.Error().Err(err).Msg("Failed to mark document as failed")
	}
	// Terminal: the spooled file is gone or unreadable, a retry cannot help
	return nil
}
