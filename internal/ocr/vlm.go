package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/render"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

const vlmOCRPrompt = "Extract all text from this image."

// VLMProvider implements OCR through a vision-language model. Language
// hints are ignored: the model infers the script on its own.
type VLMProvider struct {
	name       string
	client     *vlm.Client
	rasterizer *render.Rasterizer
}

// NewVLMProvider creates a VLM-backed OCR provider
func NewVLMProvider(cfg ProviderConfig) (*VLMProvider, error) {
	if cfg.VLM == nil {
		return nil, fmt.Errorf("vlm provider requires a configured VLM client")
	}
	return &VLMProvider{
		name:       "vlm",
		client:     cfg.VLM,
		rasterizer: cfg.Rasterizer,
	}, nil
}

func (p *VLMProvider) Name() string {
	return p.name
}

func (p *VLMProvider) Type() ProviderType {
	return ProviderTypeVLM
}

func (p *VLMProvider) IsAvailable() bool {
	return p.client != nil
}

func (p *VLMProvider) ExtractTextFromImage(ctx context.Context, imageData []byte, languages []string) (*Result, error) {
	text, err := p.client.Complete(ctx, vlm.Request{
		User:  vlmOCRPrompt,
		Image: base64.StdEncoding.EncodeToString(imageData),
	})
	if err != nil {
		return nil, fmt.Errorf("vlm OCR failed: %w", err)
	}

	text = strings.TrimSpace(text)
	return &Result{
		Text:       text,
		Confidence: estimateConfidence(text),
		Pages:      1,
	}, nil
}

func (p *VLMProvider) ExtractTextFromPDF(ctx context.Context, pdfData []byte, languages []string) (*Result, error) {
	if p.rasterizer == nil || !p.rasterizer.Available() {
		return nil, fmt.Errorf("PDF rasterization is not available for vlm OCR")
	}

	images, err := p.rasterizer.PageImages(ctx, pdfData)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize PDF: %w", err)
	}

	var allText strings.Builder
	var totalConfidence float64
	recognized := 0

	for i, imageData := range images {
		result, err := p.ExtractTextFromImage(ctx, imageData, languages)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("VLM OCR failed for page, continuing with others")
			continue
		}
		if result.Text != "" {
			allText.WriteString(result.Text)
			allText.WriteString("\n\n")
			totalConfidence += result.Confidence
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
	}, nil
}

func (p *VLMProvider) Close() error {
	return nil
}
