// Package ocr provides the fallback text-recognition providers used when
// native PDF extraction yields low-quality text.
package ocr

import (
	"context"
	"fmt"
	"unicode"

	"github.com/NaserJamal/simple-ocr/internal/render"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

// ProviderType represents the type of OCR provider
type ProviderType string

const (
	ProviderTypeTesseract ProviderType = "tesseract"
	ProviderTypeVLM       ProviderType = "vlm"
)

// Result represents the result of OCR processing
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Pages      int     `json:"pages"`
	Language   string  `json:"language,omitempty"`
}

// Provider defines the interface for OCR providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Type returns the provider type
	Type() ProviderType

	// ExtractTextFromPDF extracts text from PDF bytes
	ExtractTextFromPDF(ctx context.Context, pdfData []byte, languages []string) (*Result, error)

	// ExtractTextFromImage extracts text from image bytes
	ExtractTextFromImage(ctx context.Context, imageData []byte, languages []string) (*Result, error)

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() bool

	// Close cleans up resources
	Close() error
}

// ProviderConfig represents OCR provider configuration
type ProviderConfig struct {
	Type      ProviderType
	Languages []string

	// VLM backs the vlm provider; required for ProviderTypeVLM.
	VLM *vlm.Client
	// Rasterizer converts PDFs to page images for image-based providers.
	Rasterizer *render.Rasterizer
}

// NewProvider creates an OCR provider based on configuration
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderTypeTesseract:
		return NewTesseractProvider(cfg)
	case ProviderTypeVLM:
		return NewVLMProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown OCR provider type: %q", cfg.Type)
	}
}

// estimateConfidence estimates recognition confidence from text
// characteristics when the engine reports none.
func estimateConfidence(text string) float64 {
	if len(text) == 0 {
		return 0
	}

	printable := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}

	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}
