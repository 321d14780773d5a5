package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/NaserJamal/simple-ocr/internal/quality"
)

// Config represents the application configuration
type Config struct {
	VLM     VLMConfig     `mapstructure:"vlm"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Quality QualityConfig `mapstructure:"quality"`
	Render  RenderConfig  `mapstructure:"render"`
	Extract ExtractConfig `mapstructure:"extract"`
	Debug   bool          `mapstructure:"debug"`
}

// VLMConfig contains settings for the vision-language model endpoint
type VLMConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	TargetSize        int     `mapstructure:"target_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// OCRConfig contains OCR fallback settings
type OCRConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Provider  string   `mapstructure:"provider"` // tesseract or vlm
	Languages []string `mapstructure:"languages"`
}

// QualityConfig tunes the text-quality heuristics. Zero-valued fields fall
// back to the reference defaults so a partial config stays usable.
type QualityConfig struct {
	Threshold             int     `mapstructure:"threshold"`
	MinAlphanumericRatio  float64 `mapstructure:"min_alphanumeric_ratio"`
	AlphanumericWeight    float64 `mapstructure:"alphanumeric_weight"`
	MaxSpecialCharRatio   float64 `mapstructure:"max_special_char_ratio"`
	SpecialCharWeight     float64 `mapstructure:"special_char_weight"`
	MinValidWordRatio     float64 `mapstructure:"min_valid_word_ratio"`
	ValidWordWeight       float64 `mapstructure:"valid_word_weight"`
	MinAvgWordLength      float64 `mapstructure:"min_avg_word_length"`
	MaxAvgWordLength      float64 `mapstructure:"max_avg_word_length"`
	AvgWordLengthPenalty  float64 `mapstructure:"avg_word_length_penalty"`
	RepeatedRunPenalty    float64 `mapstructure:"repeated_run_penalty"`
	RepeatedRunPenaltyCap float64 `mapstructure:"repeated_run_penalty_cap"`
	MinTextLength         int     `mapstructure:"min_text_length"`
	ShortTextPenalty      float64 `mapstructure:"short_text_penalty"`
}

// RenderConfig contains PDF rasterization settings
type RenderConfig struct {
	DPI   int `mapstructure:"dpi"`
	Scale int `mapstructure:"scale"`
}

// ExtractConfig contains extraction pipeline settings
type ExtractConfig struct {
	MaxWorkers int    `mapstructure:"max_workers"`
	OutputDir  string `mapstructure:"output_dir"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	viper.SetConfigName("simpleocr")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/simpleocr")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SIMPLEOCR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.applyLegacyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyLegacyEnv honors the older OCR_MODEL_* variable names so existing
// .env files keep working.
func (c *Config) applyLegacyEnv() {
	if c.VLM.APIKey == "" {
		c.VLM.APIKey = os.Getenv("OCR_MODEL_API_KEY")
	}
	if v := os.Getenv("OCR_MODEL_BASE_URL"); v != "" && !viper.IsSet("vlm.base_url") {
		c.VLM.BaseURL = v
	}
	if c.VLM.Model == "" {
		c.VLM.Model = os.Getenv("OCR_MODEL_NAME")
	}
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
		"../.env", // For when running from subdirectories
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults() {
	// VLM defaults
	viper.SetDefault("vlm.max_tokens", 16000)
	viper.SetDefault("vlm.temperature", 0.1)
	viper.SetDefault("vlm.target_size", 1001)
	viper.SetDefault("vlm.requests_per_second", 2.0)

	// OCR defaults
	viper.SetDefault("ocr.enabled", true)
	viper.SetDefault("ocr.provider", "vlm")
	viper.SetDefault("ocr.languages", []string{"eng"})

	// Quality defaults mirror quality.DefaultConfig
	def := quality.DefaultConfig()
	viper.SetDefault("quality.threshold", def.Threshold)
	viper.SetDefault("quality.min_alphanumeric_ratio", def.MinAlphanumericRatio)
	viper.SetDefault("quality.alphanumeric_weight", def.AlphanumericWeight)
	viper.SetDefault("quality.max_special_char_ratio", def.MaxSpecialCharRatio)
	viper.SetDefault("quality.special_char_weight", def.SpecialCharWeight)
	viper.SetDefault("quality.min_valid_word_ratio", def.MinValidWordRatio)
	viper.SetDefault("quality.valid_word_weight", def.ValidWordWeight)
	viper.SetDefault("quality.min_avg_word_length", def.MinAvgWordLength)
	viper.SetDefault("quality.max_avg_word_length", def.MaxAvgWordLength)
	viper.SetDefault("quality.avg_word_length_penalty", def.AvgWordLengthPenalty)
	viper.SetDefault("quality.repeated_run_penalty", def.RepeatedRunPenalty)
	viper.SetDefault("quality.repeated_run_penalty_cap", def.RepeatedRunPenaltyCap)
	viper.SetDefault("quality.min_text_length", def.MinTextLength)
	viper.SetDefault("quality.short_text_penalty", def.ShortTextPenalty)

	// Render defaults
	viper.SetDefault("render.dpi", 150)
	viper.SetDefault("render.scale", 1)

	// Extract defaults
	viper.SetDefault("extract.max_workers", 5)
	viper.SetDefault("extract.output_dir", "output")
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 100 {
		return fmt.Errorf("quality.threshold must be in [0, 100], got %d", c.Quality.Threshold)
	}
	if c.VLM.TargetSize <= 0 {
		return fmt.Errorf("vlm.target_size must be positive, got %d", c.VLM.TargetSize)
	}
	if c.Extract.MaxWorkers < 1 {
		return fmt.Errorf("extract.max_workers must be at least 1, got %d", c.Extract.MaxWorkers)
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("render.dpi must be positive, got %d", c.Render.DPI)
	}
	switch c.OCR.Provider {
	case "tesseract", "vlm":
	default:
		return fmt.Errorf("ocr.provider must be tesseract or vlm, got %q", c.OCR.Provider)
	}
	return nil
}

// QualityAssessorConfig converts the quality section into the assessor's
// config, filling unset tunables with the reference defaults.
func (c *Config) QualityAssessorConfig() quality.Config {
	def := quality.DefaultConfig()
	q := c.Quality

	cfg := def
	cfg.Threshold = q.Threshold
	if q.MinAlphanumericRatio > 0 {
		cfg.MinAlphanumericRatio = q.MinAlphanumericRatio
	}
	if q.AlphanumericWeight > 0 {
		cfg.AlphanumericWeight = q.AlphanumericWeight
	}
	if q.MaxSpecialCharRatio > 0 {
		cfg.MaxSpecialCharRatio = q.MaxSpecialCharRatio
	}
	if q.SpecialCharWeight > 0 {
		cfg.SpecialCharWeight = q.SpecialCharWeight
	}
	if q.MinValidWordRatio > 0 {
		cfg.MinValidWordRatio = q.MinValidWordRatio
	}
	if q.ValidWordWeight > 0 {
		cfg.ValidWordWeight = q.ValidWordWeight
	}
	if q.MinAvgWordLength > 0 {
		cfg.MinAvgWordLength = q.MinAvgWordLength
	}
	if q.MaxAvgWordLength > 0 {
		cfg.MaxAvgWordLength = q.MaxAvgWordLength
	}
	if q.AvgWordLengthPenalty > 0 {
		cfg.AvgWordLengthPenalty = q.AvgWordLengthPenalty
	}
	if q.RepeatedRunPenalty > 0 {
		cfg.RepeatedRunPenalty = q.RepeatedRunPenalty
	}
	if q.RepeatedRunPenaltyCap > 0 {
		cfg.RepeatedRunPenaltyCap = q.RepeatedRunPenaltyCap
	}
	if q.MinTextLength > 0 {
		cfg.MinTextLength = q.MinTextLength
	}
	if q.ShortTextPenalty > 0 {
		cfg.ShortTextPenalty = q.ShortTextPenalty
	}
	return cfg
}
