// Package extract implements quality-gated PDF text extraction: the native
// text layer is scored page by page and pages falling below the acceptance
// threshold are re-extracted through the OCR fallback.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/ocr"
	"github.com/NaserJamal/simple-ocr/internal/quality"
)

// Source identifies where a page's final text came from
type Source string

const (
	SourceNative Source = "native"
	SourceOCR    Source = "ocr"
)

// PageResult carries the final text for one page together with the quality
// report that drove the extraction decision.
type PageResult struct {
	Page    int            `json:"page"`
	Text    string         `json:"text"`
	Report  quality.Report `json:"report"`
	Source  Source         `json:"source"`
	OCRUsed bool           `json:"ocr_used"`
}

// Result is the outcome of extracting a full document
type Result struct {
	Pages []PageResult `json:"pages"`
	Text  string       `json:"text"`
}

// FallbackOCR is the slice of the OCR service the extractor needs.
type FallbackOCR interface {
	IsEnabled() bool
	ExtractTextFromImage(ctx context.Context, imageData []byte, languages []string) (*ocr.Result, error)
	ExtractTextFromPDF(ctx context.Context, pdfData []byte, languages []string) (*ocr.Result, error)
}

// PageRasterizer renders a PDF into per-page images for the OCR fallback.
type PageRasterizer interface {
	Available() bool
	PageImages(ctx context.Context, pdfData []byte) ([][]byte, error)
}

// Config assembles an Extractor
type Config struct {
	Assessor   *quality.Assessor
	OCR        FallbackOCR
	Rasterizer PageRasterizer
	MaxWorkers int
	Languages  []string
}

// Extractor runs the quality-gated extraction pipeline
type Extractor struct {
	assessor   *quality.Assessor
	ocr        FallbackOCR
	rasterizer PageRasterizer
	maxWorkers int
	languages  []string
}

// New creates an extractor. The assessor is required; OCR and rasterizer
// are optional, without them low-quality pages keep their native text.
func New(cfg Config) (*Extractor, error) {
	if cfg.Assessor == nil {
		return nil, fmt.Errorf("extract: quality assessor is required")
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &Extractor{
		assessor:   cfg.Assessor,
		ocr:        cfg.OCR,
		rasterizer: cfg.Rasterizer,
		maxWorkers: cfg.MaxWorkers,
		languages:  cfg.Languages,
	}, nil
}

// ExtractPDF extracts text from every page of the PDF, falling back to OCR
// for pages whose native text scores below the acceptance threshold.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (*Result, error) {
	texts, err := e.nativePageTexts(data)
	if err != nil {
		// The PDF could not be parsed at all; OCR the whole document if we
		// can, otherwise surface the parse error.
		if e.ocrEnabled() {
			log.Debug().Err(err).Msg("Native PDF parsing failed, attempting full-document OCR")
			return e.extractAllWithOCR(ctx, data)
		}
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	return e.processPages(ctx, data, texts)
}

// AssessText scores a standalone block of text. Exposed so callers can gate
// non-PDF inputs with the same policy.
func (e *Extractor) AssessText(text string) quality.Report {
	return e.assessor.Assess(text)
}

// processPages assesses each page's native text and re-extracts the
// rejected pages through OCR in parallel. Results are written by page
// index, never by completion order.
func (e *Extractor) processPages(ctx context.Context, pdfData []byte, texts []string) (*Result, error) {
	results := make([]PageResult, len(texts))
	var needFallback []int

	for i, text := range texts {
		report := e.assessor.Assess(text)
		results[i] = PageResult{
			Page:   i,
			Text:   text,
			Report: report,
			Source: SourceNative,
		}

		if e.assessor.Accept(report) {
			log.Info().
				Int("page", i+1).
				Int("score", report.Score).
				Int("chars", len(text)).
				Msg("Using native text")
			continue
		}

		log.Info().
			Int("page", i+1).
			Int("score", report.Score).
			Strs("reasons", report.Reasons).
			Msg("Quality below threshold")
		needFallback = append(needFallback, i)
	}

	if len(needFallback) > 0 && e.ocrEnabled() {
		e.runFallback(ctx, pdfData, needFallback, results)
	}

	return e.assemble(results), nil
}

// runFallback renders the document once and OCRs the rejected pages on a
// bounded worker pool.
func (e *Extractor) runFallback(ctx context.Context, pdfData []byte, pages []int, results []PageResult) {
	if e.rasterizer == nil || !e.rasterizer.Available() {
		log.Warn().Msg("Rasterizer unavailable, keeping native text for low-quality pages")
		return
	}

	images, err := e.rasterizer.PageImages(ctx, pdfData)
	if err != nil {
		log.Warn().Err(err).Msg("Rasterization failed, keeping native text for low-quality pages")
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for _, pageIdx := range pages {
		if pageIdx >= len(images) {
			log.Warn().Int("page", pageIdx+1).Msg("No rendered image for page, keeping native text")
			continue
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = e.fallbackPage(ctx, images[idx], results[idx])
		}(pageIdx)
	}
	wg.Wait()
}

// fallbackPage OCRs one page and keeps whichever text scores better. The
// native text survives an OCR that fails or comes back worse.
func (e *Extractor) fallbackPage(ctx context.Context, image []byte, native PageResult) PageResult {
	ocrResult, err := e.ocr.ExtractTextFromImage(ctx, image, e.languages)
	if err != nil {
		log.Warn().Err(err).Int("page", native.Page+1).Msg("OCR fallback failed, keeping native text")
		return native
	}

	text := SanitizeText(strings.TrimSpace(ocrResult.Text))
	report := e.assessor.Assess(text)

	if !e.assessor.Accept(report) && report.Score <= native.Report.Score {
		log.Warn().
			Int("page", native.Page+1).
			Int("native_score", native.Report.Score).
			Int("ocr_score", report.Score).
			Msg("OCR text no better than native, keeping native text")
		native.OCRUsed = true
		return native
	}

	log.Info().
		Int("page", native.Page+1).
		Int("native_score", native.Report.Score).
		Int("ocr_score", report.Score).
		Msg("Replaced native text with OCR text")

	return PageResult{
		Page:    native.Page,
		Text:    text,
		Report:  report,
		Source:  SourceOCR,
		OCRUsed: true,
	}
}

// extractAllWithOCR handles documents whose native layer cannot be parsed.
func (e *Extractor) extractAllWithOCR(ctx context.Context, data []byte) (*Result, error) {
	if e.rasterizer == nil || !e.rasterizer.Available() {
		return nil, fmt.Errorf("PDF could not be parsed and no rasterizer is available for OCR")
	}

	images, err := e.rasterizer.PageImages(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize PDF for OCR: %w", err)
	}

	results := make([]PageResult, len(images))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i := range images {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ocrResult, err := e.ocr.ExtractTextFromImage(ctx, images[idx], e.languages)
			if err != nil {
				log.Warn().Err(err).Int("page", idx+1).Msg("OCR failed for page")
				results[idx] = PageResult{
					Page:   idx,
					Report: quality.Report{Score: 0, Reasons: []string{"OCR failed: " + err.Error()}},
					Source: SourceOCR,
				}
				return
			}

			text := SanitizeText(strings.TrimSpace(ocrResult.Text))
			results[idx] = PageResult{
				Page:    idx,
				Text:    text,
				Report:  e.assessor.Assess(text),
				Source:  SourceOCR,
				OCRUsed: true,
			}
		}(i)
	}
	wg.Wait()

	return e.assemble(results), nil
}

func (e *Extractor) assemble(results []PageResult) *Result {
	var parts []string
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	return &Result{
		Pages: results,
		Text:  strings.TrimSpace(strings.Join(parts, "\n\n")),
	}
}

func (e *Extractor) ocrEnabled() bool {
	return e.ocr != nil && e.ocr.IsEnabled()
}

// nativePageTexts pulls the embedded text layer for every page
func (e *Extractor) nativePageTexts(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages := reader.NumPage()
	texts := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Failed to extract native text for page")
			texts = append(texts, "")
			continue
		}
		texts = append(texts, SanitizeText(strings.TrimSpace(content)))
	}

	return texts, nil
}

// SanitizeText removes null bytes and control characters that downstream
// consumers reject, keeping tabs, newlines and carriage returns.
func SanitizeText(text string) string {
	if text == "" {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))

	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' || (r >= 0x20 && r != 0x7F) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}
