package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholds_Level(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name        string
		probability float64
		want        string
	}{
		{name: "zero probability", probability: 0, want: LevelLow},
		{name: "below moderate cutoff", probability: 0.34, want: LevelLow},
		{name: "at moderate cutoff", probability: 0.35, want: LevelModerate},
		{name: "between cutoffs", probability: 0.49, want: LevelModerate},
		{name: "at high cutoff", probability: 0.5, want: LevelHigh},
		{name: "certain", probability: 1, want: LevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, thresholds.Level(tt.probability))
		})
	}
}

func TestLoadThresholds_MissingFileFallsBack(t *testing.T) {
	got, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), got)
}

func TestLoadThresholds_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moderate: 0.25\nhigh: 0.6\n"), 0644))

	got, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, Thresholds{Moderate: 0.25, High: 0.6}, got)
}

func TestLoadThresholds_RejectsUnorderedCutoffs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moderate: 0.7\nhigh: 0.6\n"), 0644))

	_, err := LoadThresholds(path)
	assert.Error(t, err)
}
