//go:build cgo && ocr

package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/render"
)

// TesseractProvider implements OCR using Tesseract
type TesseractProvider struct {
	name             string
	defaultLanguages []string
	available        bool
	rasterizer       *render.Rasterizer
}

// NewTesseractProvider creates a new Tesseract OCR provider
func NewTesseractProvider(cfg ProviderConfig) (*TesseractProvider, error) {
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	_, err := exec.LookPath("tesseract")
	available := err == nil
	if !available {
		log.Warn().Msg("Tesseract not found in PATH, OCR will be unavailable")
	} else {
		log.Debug().Strs("languages", languages).Msg("Tesseract provider initialized")
	}

	return &TesseractProvider{
		name:             "tesseract",
		defaultLanguages: languages,
		available:        available,
		rasterizer:       cfg.Rasterizer,
	}, nil
}

func (p *TesseractProvider) Name() string {
	return p.name
}

func (p *TesseractProvider) Type() ProviderType {
	return ProviderTypeTesseract
}

func (p *TesseractProvider) IsAvailable() bool {
	return p.available
}

func (p *TesseractProvider) ExtractTextFromPDF(ctx context.Context, pdfData []byte, languages []string) (*Result, error) {
	if !p.available {
		return nil, fmt.Errorf("tesseract is not available")
	}
	if p.rasterizer == nil || !p.rasterizer.Available() {
		return nil, fmt.Errorf("PDF rasterization is not available for tesseract OCR")
	}

	if len(languages) == 0 {
		languages = p.defaultLanguages
	}

	images, err := p.rasterizer.PageImages(ctx, pdfData)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize PDF: %w", err)
	}

	var allText strings.Builder
	var totalConfidence float64
	recognized := 0

	for i, imageData := range images {
		text, confidence, err := p.ocrImage(imageData, languages)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("OCR failed for page, continuing with others")
			continue
		}
		if text != "" {
			allText.WriteString(text)
			allText.WriteString("\n\n")
			totalConfidence += confidence
			recognized++
		}
	}

	avgConfidence := 0.0
	if recognized > 0 {
		avgConfidence = totalConfidence / float64(recognized)
	}

	return &Result{
		Text:       strings.TrimSpace(allText.String()),
		Confidence: avgConfidence,
		Pages:      len(images),
		Language:   strings.Join(languages, "+"),
	}, nil
}

func (p *TesseractProvider) ExtractTextFromImage(ctx context.Context, imageData []byte, languages []string) (*Result, error) {
	if !p.available {
		return nil, fmt.Errorf("tesseract is not available")
	}
	if len(languages) == 0 {
		languages = p.defaultLanguages
	}

	text, confidence, err := p.ocrImage(imageData, languages)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:       text,
		Confidence: confidence,
		Pages:      1,
		Language:   strings.Join(languages, "+"),
	}, nil
}

func (p *TesseractProvider) Close() error {
	return nil
}

// ocrImage runs Tesseract on a single image
func (p *TesseractProvider) ocrImage(imageData []byte, languages []string) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	langStr := strings.Join(languages, "+")
	if err := client.SetLanguage(langStr); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR failed: %w", err)
	}

	text = strings.TrimSpace(text)
	return text, estimateConfidence(text), nil
}
