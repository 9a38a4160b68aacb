package predictions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/inference"
	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/risk"
)

// Service handles prediction-related operations: forwarding feature
// vectors to the inference service and persisting the scored results
type Service struct {
	db         *gorm.DB
	inference  *inference.Client
	thresholds risk.Thresholds
	logger     zerolog.Logger
}

// NewService creates a new predictions service
func NewService(db *gorm.DB, inferenceClient *inference.Client, thresholds risk.Thresholds, logger zerolog.Logger) *Service {
	return &Service{
		db:         db,
		inference:  inferenceClient,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "predictions_service").Logger(),
	}
}

// Thresholds returns the active risk banding thresholds
func (s *Service) Thresholds() risk.Thresholds {
	return s.thresholds
}

// Create scores a feature vector against the inference service and stores the result
func (s *Service) Create(ctx context.Context, userID string, features inference.Features) (*models.Prediction, error) {
	result, err := s.inference.Predict(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("failed to score features: %w", err)
	}

	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	prediction := &models.Prediction{
		UserID:      userID,
		Features:    string(featuresJSON),
		Probability: result.Probability,
		RiskLevel:   s.thresholds.Level(result.Probability),
		ModelName:   result.ModelName,
	}

	if err := s.db.Create(prediction).Error; err != nil {
		return nil, fmt.Errorf("failed to store prediction: %w", err)
	}

	s.logger.Info().
		Str("prediction_id", prediction.ID).
		Str("user_id", userID).
		Float64("probability", result.Probability).
		Str("risk_level", prediction.RiskLevel).
		Msg("Prediction stored")

	return prediction, nil
}

// Latest returns the user's most recent prediction, or gorm.ErrRecordNotFound
func (s *Service) Latest(userID string) (*models.Prediction, error) {
	var prediction models.Prediction
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").First(&prediction).Error
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// ListForUser returns all of a user's predictions, newest first
func (s *Service) ListForUser(userID string) ([]models.Prediction, error) {
	var predictions []models.Prediction
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return predictions, nil
}

// Get returns a single prediction owned by the given user
func (s *Service) Get(userID, predictionID string) (*models.Prediction, error) {
	var prediction models.Prediction
	err := s.db.Where("id = ? AND user_id = ?", predictionID, userID).First(&prediction).Error
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// Stats aggregates prediction counters for the admin dashboard
type Stats struct {
	TotalUsers       int64   `json:"total_users"`
	TotalPredictions int64   `json:"total_predictions"`
	TotalReports     int64   `json:"total_reports"`
	HighRiskCount    int64   `json:"high_risk_count"`
	AvgProbability   float64 `json:"avg_probability"`
}

// ComputeStats counts users, predictions and reports across the database
func (s *Service) ComputeStats() (*Stats, error) {
	var stats Stats

	if err := s.db.Model(&models.User{}).Where("role <> ?", models.RoleAdmin).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.Model(&models.Prediction{}).Count(&stats.TotalPredictions).Error; err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}
	if err := s.db.Model(&models.Report{}).Count(&stats.TotalReports).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if err := s.db.Model(&models.Prediction{}).Where("risk_level = ?", risk.LevelHigh).Count(&stats.HighRiskCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count high-risk predictions: %w", err)
	}

	if stats.TotalPredictions > 0 {
		var avg float64
		if err := s.db.Model(&models.Prediction{}).Select("AVG(probability)").Scan(&avg).Error; err != nil {
			return nil, fmt.Errorf("failed to average probabilities: %w", err)
		}
		stats.AvgProbability = avg
	}

	return &stats, nil
}
