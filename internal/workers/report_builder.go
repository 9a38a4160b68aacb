package workers

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/reports"
	"github.com/diatrack-dev/diatrack/internal/tasks"
)

// HandleBuildReport aggregates a user's prediction history into the
// pending report row created by the API server
func HandleBuildReport(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseBuildReportPayload(t)
	if err != nil {
		return err
	}

	log := logger.With().Str("report_id", payload.ReportID).Str("user_id", payload.UserID).Logger()

	var report models.Report
	if err := models.FindByID(db, payload.ReportID, &report); err != nil {
		if err == gorm.ErrRecordNotFound {
			// Report was deleted before the worker got to it; nothing to do
			log.Warn().Msg("Report no longer exists, skipping build")
			return nil
		}
		return err
	}

	svc := reports.NewService(db, logger)

	summary, err := svc.BuildSummary(payload.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Report build failed")
		if markErr := svc.MarkFailed(&report, err); markErr != nil {
			log.Error().Err(markErr).Msg("Failed to mark report as failed")
		}
		// Build failures are terminal: retrying won't conjure predictions
		return nil
	}

	if err := svc.MarkReady(&report, summary); err != nil {
		log.Error().Err(err).Msg("Failed to store report summary")
		return err
	}

	log.Info().Int("predictions", summary.Predictions).Msg("Report built")
	return nil
}
