package reports

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/risk"
)

// Service handles report records. Building runs in the worker; the
// server only creates pending rows and reads finished ones.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new reports service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "reports_service").Logger(),
	}
}

// GenerateReportName generates a report title with UTC datetime format
// Returns: report_YYYYMMDDHHmmss (e.g., report_20260831143202)
func GenerateReportName() string {
	return fmt.Sprintf("report_%s", time.Now().UTC().Format("20060102150405"))
}

// CreatePending inserts a pending report row for the worker to fill in
func (s *Service) CreatePending(userID string) (*models.Report, error) {
	report := &models.Report{
		UserID: userID,
		Title:  GenerateReportName(),
		Status: models.ReportStatusPending,
	}

	if err := s.db.Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	return report, nil
}

// ListForUser returns all of a user's reports, newest first
func (s *Service) ListForUser(userID string) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// Get returns a single report owned by the given user
func (s *Service) Get(userID, reportID string) (*models.Report, error) {
	var report models.Report
	err := s.db.Where("id = ? AND user_id = ?", reportID, userID).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Delete removes a report owned by the given user
func (s *Service) Delete(userID, reportID string) error {
	result := s.db.Where("id = ? AND user_id = ?", reportID, userID).Delete(&models.Report{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Summary is the aggregate the worker computes from a user's predictions
type Summary struct {
	GeneratedAt    time.Time `json:"generated_at"`
	Predictions    int       `json:"predictions"`
	HighRiskCount  int       `json:"high_risk_count"`
	LatestLevel    string    `json:"latest_level"`
	LatestLabel    string    `json:"latest_label"`
	AvgProbability float64   `json:"avg_probability"`
	MaxProbability float64   `json:"max_probability"`
	FirstAt        time.Time `json:"first_at"`
	LastAt         time.Time `json:"last_at"`
}

// BuildSummary aggregates the user's prediction history into a Summary.
// Returns an error when no predictions exist: there is nothing to report on.
func (s *Service) BuildSummary(userID string) (*Summary, error) {
	var predictions []models.Prediction
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	if len(predictions) == 0 {
		return nil, fmt.Errorf("no predictions to report on")
	}

	summary := &Summary{
		GeneratedAt: time.Now().UTC(),
		Predictions: len(predictions),
		FirstAt:     predictions[0].CreatedAt,
		LastAt:      predictions[len(predictions)-1].CreatedAt,
	}

	var sum float64
	for _, p := range predictions {
		sum += p.Probability
		if p.Probability > summary.MaxProbability {
			summary.MaxProbability = p.Probability
		}
		if p.RiskLevel == risk.LevelHigh {
			summary.HighRiskCount++
		}
	}
	summary.AvgProbability = sum / float64(len(predictions))

	latest := predictions[len(predictions)-1]
	summary.LatestLevel = latest.RiskLevel
	summary.LatestLabel = risk.Label(latest.RiskLevel)

	return summary, nil
}

// MarkReady stores the built summary and flips the report to ready
func (s *Service) MarkReady(report *models.Report, summary *Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	now := time.Now()
	return s.db.Model(report).Updates(map[string]interface{}{
		"status":   models.ReportStatusReady,
		"summary":  string(data),
		"ready_at": &now,
	}).Error
}

// MarkFailed records a build failure on the report row
func (s *Service) MarkFailed(report *models.Report, buildErr error) error {
	return s.db.Model(report).Updates(map[string]interface{}{
		"status": models.ReportStatusFailed,
		"error":  buildErr.Error(),
	}).Error
}
