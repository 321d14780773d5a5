package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaserJamal/simple-ocr/internal/quality"
)

func defaultsConfig(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	var cfg Config
	require.NoError(t, viper.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultsConfig(t)

	assert.Equal(t, 70, cfg.Quality.Threshold)
	assert.Equal(t, 1001, cfg.VLM.TargetSize)
	assert.Equal(t, 150, cfg.Render.DPI)
	assert.Equal(t, 5, cfg.Extract.MaxWorkers)
	assert.Equal(t, "vlm", cfg.OCR.Provider)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)

	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "threshold above range", mutate: func(c *Config) { c.Quality.Threshold = 150 }},
		{name: "threshold below range", mutate: func(c *Config) { c.Quality.Threshold = -5 }},
		{name: "zero target size", mutate: func(c *Config) { c.VLM.TargetSize = 0 }},
		{name: "zero workers", mutate: func(c *Config) { c.Extract.MaxWorkers = 0 }},
		{name: "zero dpi", mutate: func(c *Config) { c.Render.DPI = 0 }},
		{name: "unknown ocr provider", mutate: func(c *Config) { c.OCR.Provider = "easyocr" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultsConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestQualityAssessorConfig(t *testing.T) {
	t.Run("defaults pass through", func(t *testing.T) {
		cfg := defaultsConfig(t)
		assert.Equal(t, quality.DefaultConfig(), cfg.QualityAssessorConfig())
	})

	t.Run("overrides apply", func(t *testing.T) {
		cfg := defaultsConfig(t)
		cfg.Quality.Threshold = 50
		cfg.Quality.MinTextLength = 5
		cfg.Quality.ShortTextPenalty = 40

		got := cfg.QualityAssessorConfig()
		assert.Equal(t, 50, got.Threshold)
		assert.Equal(t, 5, got.MinTextLength)
		assert.Equal(t, 40.0, got.ShortTextPenalty)
		// Untouched tunables stay at the reference defaults.
		assert.Equal(t, quality.DefaultConfig().MinAlphanumericRatio, got.MinAlphanumericRatio)
	})
}
