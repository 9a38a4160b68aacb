package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diatrack-dev/diatrack/internal/inference"
	"github.com/diatrack-dev/diatrack/internal/risk"
)

// PredictRequest represents a prediction request
type PredictRequest struct {
	Pregnancies   int     `json:"pregnancies" binding:"min=0"`
	Glucose       float64 `json:"glucose" binding:"required,gt=0"`
	BloodPressure float64 `json:"blood_pressure" binding:"required,gt=0"`
	SkinThickness float64 `json:"skin_thickness" binding:"min=0"`
	Insulin       float64 `json:"insulin" binding:"min=0"`
	BMI           float64 `json:"bmi" binding:"required,gt=0"`
	PedigreeFunc  float64 `json:"diabetes_pedigree_function" binding:"min=0"`
	Age           int     `json:"age" binding:"required,gt=0"`
}

// @Summary Predict
// @Description Score a clinical feature vector against the inference service
// @Tags predictions
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Feature vector"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/predict [post]
func (s *Server) predict(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid feature values"})
		return
	}

	features := inference.Features{
		Pregnancies:   req.Pregnancies,
		Glucose:       req.Glucose,
		BloodPressure: req.BloodPressure,
		SkinThickness: req.SkinThickness,
		Insulin:       req.Insulin,
		BMI:           req.BMI,
		PedigreeFunc:  req.PedigreeFunc,
		Age:           req.Age,
	}

	prediction, err := s.predictionsService.Create(c.Request.Context(), sessionData.UserID, features)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Prediction failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Prediction service unavailable. Please try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"prediction":  prediction,
		"result":      risk.Label(prediction.RiskLevel),
		"probability": prediction.Probability,
		"risk_level":  prediction.RiskLevel,
	})
}

// @Summary Latest prediction
// @Description The current user's most recent prediction
// @Tags predictions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/user/latest_prediction [get]
func (s *Server) getLatestPrediction(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	prediction, err := s.predictionsService.Latest(sessionData.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No predictions yet"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load latest prediction")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": prediction})
}

// @Summary All predictions
// @Description The current user's full prediction history, newest first
// @Tags predictions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/user/all_predictions [get]
func (s *Server) listPredictions(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	predictions, err := s.predictionsService.ListForUser(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "predictions": predictions})
}

// @Summary Get prediction
// @Description One prediction owned by the current user
// @Tags predictions
// @Produce json
// @Param id path string true "Prediction ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/user/prediction/{id} [get]
func (s *Server) getPrediction(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	prediction, err := s.predictionsService.Get(sessionData.UserID, c.Param("id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Prediction not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load prediction")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": prediction})
}
