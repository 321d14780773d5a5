package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

// Default system prompt for section detection. Can be replaced with a
// custom prompt file via WithPromptFile.
const defaultSectionPrompt = `You are a document layout analysis system. You receive an image of a single document page and identify its major layout sections.

Focus on HIGH-LEVEL sections, not individual elements. Recognized section types: header, title, paragraph, table, list, image, figure_caption, form_field, signature, footer, sidebar, chart.

For every section return an object with:
- "section_type": one of the types above
- "rect": the bounding box as [x0, y0, x1, y1] in image pixels, origin at the top-left
- "confidence": "high", "medium" or "low"
- "description": a brief description of the section content

Respond with a JSON array of section objects and nothing else.`

// Detector finds layout sections on rendered pages
type Detector struct {
	client       *vlm.Client
	systemPrompt string
	targetSize   int
}

// DetectorOption customizes a Detector
type DetectorOption func(*Detector)

// WithPrompt replaces the default section detection system prompt
func WithPrompt(prompt string) DetectorOption {
	return func(d *Detector) { d.systemPrompt = prompt }
}

// WithPromptFile loads the system prompt from a file
func WithPromptFile(path string) DetectorOption {
	return func(d *Detector) {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to load prompt file, keeping default")
			return
		}
		d.systemPrompt = strings.TrimSpace(string(data))
	}
}

// NewDetector creates a section detector. targetSize is the canvas edge
// length the page images are prepared at.
func NewDetector(client *vlm.Client, targetSize int, opts ...DetectorOption) *Detector {
	d := &Detector{
		client:       client,
		systemPrompt: defaultSectionPrompt,
		targetSize:   targetSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectSections asks the VLM for the layout sections of one page image.
// The image must be the base64 PNG canvas produced by render.PrepareCanvas.
// Invalid entries in the reply are dropped with a warning, so a partially
// malformed response still yields the usable sections.
func (d *Detector) DetectSections(ctx context.Context, imageB64 string, pageNum int) ([]Section, error) {
	userPrompt := fmt.Sprintf(
		"Please analyze this document image (page %d) and identify the major layout sections. "+
			"The image is %dx%d pixels (square canvas with document at top-left). "+
			"Focus on HIGH-LEVEL sections, not individual elements. "+
			"Return rectangles in IMAGE PIXELS with origin at the top-left as [x0, y0, x1, y1]. "+
			"Ensure x0 < x1 and y0 < y1 and keep values within the image bounds. "+
			"Return ONLY the JSON array with no markdown formatting.",
		pageNum+1, d.targetSize, d.targetSize,
	)

	log.Info().Int("page", pageNum).Msg("Sending page to VLM for section detection")

	reply, err := d.client.Complete(ctx, vlm.Request{
		System: d.systemPrompt,
		User:   userPrompt,
		Image:  imageB64,
		Detail: "high",
	})
	if err != nil {
		return nil, fmt.Errorf("section detection failed for page %d: %w", pageNum, err)
	}

	sections, err := d.parseResponse(reply, pageNum)
	if err != nil {
		return nil, err
	}

	log.Info().Int("page", pageNum).Int("sections", len(sections)).Msg("Detected layout sections")
	return sections, nil
}

func (d *Detector) parseResponse(reply string, pageNum int) ([]Section, error) {
	raw, err := vlm.ExtractJSONArray(reply)
	if err != nil {
		return nil, fmt.Errorf("parse sections for page %d: %w", pageNum, err)
	}

	var sections []Section
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, fmt.Errorf("parse sections for page %d: %w", pageNum, err)
	}

	valid := sections[:0]
	for _, section := range sections {
		if !d.validate(&section, pageNum) {
			log.Warn().
				Int("page", pageNum).
				Str("section_type", section.Type).
				Msg("Dropping invalid section")
			continue
		}
		valid = append(valid, section)
	}
	return valid, nil
}

// validate checks required fields and clamps out-of-bounds rects to the
// canvas, mirroring the lenient treatment of model output elsewhere:
// fixable responses are fixed, unfixable ones are dropped.
func (d *Detector) validate(section *Section, pageNum int) bool {
	if section.Type == "" {
		return false
	}
	if !section.Rect.Valid() {
		return false
	}

	size := float64(d.targetSize)
	clamped := section.Rect.Clamp(size, size)
	if clamped != section.Rect {
		log.Warn().
			Int("page", pageNum).
			Str("section_type", section.Type).
			Msg("Clamping out-of-bounds section rect")
		section.Rect = clamped
	}
	return section.Rect.Valid()
}
