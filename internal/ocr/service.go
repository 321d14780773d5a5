package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Service manages the OCR provider used for fallback extraction
type Service struct {
	provider         Provider
	defaultLanguages []string
	mu               sync.RWMutex
	enabled          bool
}

// ServiceConfig contains configuration for the OCR service
type ServiceConfig struct {
	Enabled  bool
	Provider ProviderConfig
}

// NewService creates a new OCR service
func NewService(cfg ServiceConfig) (*Service, error) {
	if !cfg.Enabled {
		log.Info().Msg("OCR fallback disabled")
		return &Service{enabled: false}, nil
	}

	languages := cfg.Provider.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
		cfg.Provider.Languages = languages
	}

	provider, err := NewProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR provider: %w", err)
	}

	if !provider.IsAvailable() {
		log.Warn().Str("provider", string(cfg.Provider.Type)).Msg("OCR provider not available, fallback will be disabled")
		return &Service{enabled: false}, nil
	}

	log.Info().
		Str("provider", provider.Name()).
		Strs("languages", languages).
		Msg("OCR service initialized")

	return &Service{
		provider:         provider,
		defaultLanguages: languages,
		enabled:          true,
	}, nil
}

// ExtractTextFromPDF attempts OCR on a PDF document.
// If languages is empty, uses the service's default languages.
func (s *Service) ExtractTextFromPDF(ctx context.Context, pdfData []byte, languages []string) (*Result, error) {
	if !s.enabled {
		return nil, fmt.Errorf("OCR service is not enabled")
	}

	s.mu.RLock()
	provider := s.provider
	defaultLangs := s.defaultLanguages
	s.mu.RUnlock()

	if len(languages) == 0 {
		languages = defaultLangs
	}

	result, err := provider.ExtractTextFromPDF(ctx, pdfData, languages)
	if err != nil {
		return nil, fmt.Errorf("OCR extraction failed: %w", err)
	}

	log.Debug().
		Int("pages", result.Pages).
		Float64("confidence", result.Confidence).
		Int("text_length", len(result.Text)).
		Msg("OCR extraction completed")

	return result, nil
}

// ExtractTextFromImage attempts OCR on an image
func (s *Service) ExtractTextFromImage(ctx context.Context, imageData []byte, languages []string) (*Result, error) {
	if !s.enabled {
		return nil, fmt.Errorf("OCR service is not enabled")
	}

	s.mu.RLock()
	provider := s.provider
	defaultLangs := s.defaultLanguages
	s.mu.RUnlock()

	if len(languages) == 0 {
		languages = defaultLangs
	}

	return provider.ExtractTextFromImage(ctx, imageData, languages)
}

// IsEnabled returns whether OCR is enabled and available
func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

// Close releases the provider's resources
func (s *Service) Close() error {
	if s.provider != nil {
		return s.provider.Close()
	}
	return nil
}
