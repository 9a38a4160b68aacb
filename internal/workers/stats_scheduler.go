package workers

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/predictions"
)

// StartStatsScheduler runs a periodic check (every minute) for the
// configured stats rollup schedule and writes a StatsSnapshot when due
func StartStatsScheduler(db *gorm.DB, svc *predictions.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run immediately on startup, then every minute
	checkAndSnapshotStats(db, svc, logger)

	for range ticker.C {
		checkAndSnapshotStats(db, svc, logger)
	}
}

func checkAndSnapshotStats(db *gorm.DB, svc *predictions.Service, logger zerolog.Logger) {
	// Load the singleton config
	var config models.AppConfig
	err := db.First(&config).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No config found - skipping stats rollup")
			return
		}
		logger.Error().Err(err).Msg("Failed to query config for stats rollup")
		return
	}

	if config.StatsSchedule == "" {
		logger.Debug().Msg("No stats schedule configured")
		return
	}

	if config.NextStatsAt != nil && config.NextStatsAt.After(time.Now()) {
		logger.Debug().Time("next_stats_at", *config.NextStatsAt).Msg("Stats rollup not due yet")
		return
	}

	stats, err := svc.ComputeStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute stats")
		return
	}

	snapshot := &models.StatsSnapshot{
		TotalUsers:       stats.TotalUsers,
		TotalPredictions: stats.TotalPredictions,
		TotalReports:     stats.TotalReports,
		HighRiskCount:    stats.HighRiskCount,
		AvgProbability:   stats.AvgProbability,
	}
	if err := db.Create(snapshot).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to store stats snapshot")
		return
	}

	now := time.Now()
	updates := map[string]interface{}{"last_stats_at": &now}
	if next := calculateNextRunTime(config.StatsSchedule, now); next != nil {
		updates["next_stats_at"] = next
	}
	if err := db.Model(&config).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Str("config_id", config.ID).Msg("Failed to update stats schedule state")
		return
	}

	logger.Info().
		Str("snapshot_id", snapshot.ID).
		Int64("total_users", stats.TotalUsers).
		Int64("total_predictions", stats.TotalPredictions).
		Int64("high_risk_count", stats.HighRiskCount).
		Msg("Stats snapshot stored")
}

// calculateNextRunTime calculates the next rollup time from a cron schedule
func calculateNextRunTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	// Parse cron expression (standard 5-field format: minute hour day-of-month month day-of-week)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
