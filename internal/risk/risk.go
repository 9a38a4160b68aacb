// Package risk maps inference probabilities onto display bands.
// The thresholds are presentation policy, not model logic, and are
// loaded from a YAML file so deployments can tune them without a rebuild.
package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Band names
const (
	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
)

// Thresholds defines the probability cutoffs between bands.
// A probability p maps to: low when p < Moderate, moderate when
// Moderate <= p < High, high otherwise.
type Thresholds struct {
	Moderate float64 `yaml:"moderate"`
	High     float64 `yaml:"high"`
}

// DefaultThresholds matches the banding the original deployment used
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 0.35, High: 0.5}
}

// LoadThresholds reads thresholds from a YAML file, falling back to
// defaults when the file does not exist
func LoadThresholds(path string) (Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultThresholds(), nil
		}
		return Thresholds{}, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	var t Thresholds
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("failed to parse thresholds file: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate checks that the cutoffs are ordered and within [0, 1]
func (t Thresholds) Validate() error {
	if t.Moderate < 0 || t.Moderate > 1 || t.High < 0 || t.High > 1 {
		return fmt.Errorf("thresholds must be within [0, 1]")
	}
	if t.Moderate >= t.High {
		return fmt.Errorf("moderate threshold (%v) must be below high threshold (%v)", t.Moderate, t.High)
	}
	return nil
}

// Level maps a probability onto a band name
func (t Thresholds) Level(probability float64) string {
	switch {
	case probability >= t.High:
		return LevelHigh
	case probability >= t.Moderate:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Label returns the user-facing label for a band name
func Label(level string) string {
	switch level {
	case LevelHigh:
		return "High Risk of Diabetes"
	case LevelModerate:
		return "Moderate Risk of Diabetes"
	default:
		return "Low Risk / No Diabetes"
	}
}
