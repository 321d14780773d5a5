package layout

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/render"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

const sectionOCRPrompt = `You are an expert OCR system that extracts text in markdown format. Extract ALL text from the image and format it as markdown whenever possible. Use appropriate markdown elements:
- # for main headings
- ## for subheadings
- **bold** for emphasized text
- *italic* for italicized text
- - or * for bullet points
- 1. 2. 3. for numbered lists
- | tables | for tabular data
- Preserve paragraph breaks with blank lines

Return ONLY the extracted text in markdown format with no additional commentary.`

// SectionExtractor pulls markdown text out of individual section crops,
// fanning the independent VLM calls out over a bounded worker pool.
type SectionExtractor struct {
	client     *vlm.Client
	maxWorkers int
}

// NewSectionExtractor creates a section text extractor with at most
// maxWorkers concurrent VLM calls.
func NewSectionExtractor(client *vlm.Client, maxWorkers int) *SectionExtractor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &SectionExtractor{client: client, maxWorkers: maxWorkers}
}

// ExtractSections crops each section out of the original-resolution page
// image and OCRs the crops in parallel. Results keep the input order:
// each worker writes to its own index, never by completion order. A failed
// section yields empty text rather than failing the page.
func (e *SectionExtractor) ExtractSections(ctx context.Context, pageImage []byte, sections []Section, pageNum int) []Section {
	results := make([]Section, len(sections))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, section := range sections {
		wg.Add(1)
		go func(idx int, section Section) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := e.extractOne(ctx, pageImage, section, pageNum, idx)
			if err != nil {
				log.Error().
					Err(err).
					Int("page", pageNum).
					Int("section", idx).
					Str("section_type", section.Type).
					Msg("Section extraction failed")
				section.Text = ""
			} else {
				section.Text = text
				log.Info().
					Int("page", pageNum).
					Int("section", idx).
					Int("chars", len(text)).
					Msg("Extracted section text")
			}
			results[idx] = section
		}(i, section)
	}
	wg.Wait()

	return results
}

func (e *SectionExtractor) extractOne(ctx context.Context, pageImage []byte, section Section, pageNum, idx int) (string, error) {
	crop, err := render.Crop(pageImage, section.Rect.X0, section.Rect.Y0, section.Rect.X1, section.Rect.Y1)
	if err != nil {
		return "", err
	}

	label := strings.ReplaceAll(section.Type, "_", " ")
	userPrompt := "Extract all text from this " + label + " section and format it as markdown. " +
		"Maintain the document's structure using appropriate markdown elements. " +
		"If the content is a table, format it as a markdown table. " +
		"If it contains headings, use markdown heading syntax. " +
		"Preserve the hierarchy and formatting of the original document."

	reply, err := e.client.Complete(ctx, vlm.Request{
		System: sectionOCRPrompt,
		User:   userPrompt,
		Image:  base64.StdEncoding.EncodeToString(crop),
		Detail: "high",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
