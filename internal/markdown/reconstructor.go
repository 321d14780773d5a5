// Package markdown turns per-section extraction results into a single
// cohesive markdown document via an LLM reconstruction pass.
package markdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/layout"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

const emptyDocument = "# Empty Document\n\nNo text could be extracted from this document."

const reconstructionSystemPrompt = "You are an expert document reconstruction assistant. " +
	"You will receive text extracted from different sections of a document, " +
	"with each section labeled by its type (e.g., header, title, content, etc.).\n\n" +
	"Your task is to reconstruct these sections into a single, cohesive, well-formatted markdown document. " +
	"Follow these guidelines:\n\n" +
	"1. Organize content logically based on document structure\n" +
	"2. Use appropriate markdown headings (# ## ###) to create hierarchy\n" +
	"3. Preserve all important information from the sections\n" +
	"4. Remove duplicate information that appears across sections\n" +
	"5. Ensure proper markdown formatting (tables, lists, emphasis)\n" +
	"6. Create a natural flow that reads like a single document\n" +
	"7. Maintain paragraph breaks and spacing for readability\n" +
	"8. If the document has a clear title, make it the main heading\n\n" +
	"Return ONLY the reconstructed markdown document with no additional commentary."

const reconstructionTemperature = 0.3

// Reconstructor assembles extracted sections into one markdown document
type Reconstructor struct {
	client *vlm.Client
}

// NewReconstructor creates a reconstructor backed by the given model client
func NewReconstructor(client *vlm.Client) *Reconstructor {
	return &Reconstructor{client: client}
}

// Reconstruct merges all extracted page sections into a single markdown
// document. A document with no extractable text returns a fixed empty
// placeholder without a model call.
func (r *Reconstructor) Reconstruct(ctx context.Context, pages []layout.PageSections) (string, error) {
	gathered := GatherSections(pages)
	if strings.TrimSpace(gathered) == "" {
		log.Warn().Msg("No text extracted from document")
		return emptyDocument, nil
	}

	log.Info().Int("chars", len(gathered)).Msg("Sending extracted sections for reconstruction")

	userPrompt := "Below is text extracted from different sections of a document. " +
		"Each section is labeled with its type and separated by markers. " +
		"Please reconstruct this into a single, cohesive markdown document:\n\n" + gathered

	temperature := reconstructionTemperature
	reply, err := r.client.Complete(ctx, vlm.Request{
		System:      reconstructionSystemPrompt,
		User:        userPrompt,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("document reconstruction failed: %w", err)
	}

	result := vlm.StripCodeFences(strings.TrimSpace(reply))
	log.Info().Int("chars", len(result)).Msg("Reconstruction complete")
	return result, nil
}

// GatherSections flattens page sections into labeled text blocks. Pages are
// marked with "--- PAGE N ---" and every non-empty section carries its type,
// so the reconstruction model sees the original structure.
func GatherSections(pages []layout.PageSections) string {
	var parts []string

	for _, page := range pages {
		if len(page.Sections) == 0 {
			continue
		}

		parts = append(parts, fmt.Sprintf("\n--- PAGE %d ---\n", page.Page+1))

		for _, section := range page.Sections {
			if strings.TrimSpace(section.Text) == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("\n[Section Type: %s]\n%s\n", section.Type, section.Text))
		}
	}

	return strings.Join(parts, "\n")
}
