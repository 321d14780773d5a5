// Package render turns PDF pages into images sized for VLM analysis.
// Rasterization shells out to pdftoppm (poppler-utils); resizing and
// cropping go through libvips.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Rasterizer converts PDF documents to per-page PNG images
type Rasterizer struct {
	pdftoppmPath string
	dpi          int
}

// NewRasterizer creates a rasterizer rendering at the given DPI
func NewRasterizer(dpi int) *Rasterizer {
	path, err := exec.LookPath("pdftoppm")
	if err != nil {
		log.Warn().Msg("pdftoppm not found in PATH, PDF rasterization will be unavailable")
	}
	return &Rasterizer{pdftoppmPath: path, dpi: dpi}
}

// Available reports whether pdftoppm was found
func (r *Rasterizer) Available() bool {
	return r.pdftoppmPath != ""
}

// PageImages renders every page of the PDF to a PNG, in page order
func (r *Rasterizer) PageImages(ctx context.Context, pdfData []byte) ([][]byte, error) {
	if r.pdftoppmPath == "" {
		return nil, fmt.Errorf("pdftoppm (poppler-utils) is required for PDF rasterization but not found")
	}

	tmpDir, err := os.MkdirTemp("", "simpleocr-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write PDF temp file: %w", err)
	}

	outputPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.pdftoppmPath, "-png", "-r", strconv.Itoa(r.dpi), pdfPath, outputPrefix)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".png") {
			names = append(names, entry.Name())
		}
	}
	// pdftoppm zero-pads page numbers, so a name sort is a page sort.
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}

	images := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", name, err)
		}
		images = append(images, data)
	}

	log.Debug().Int("pages", len(images)).Int("dpi", r.dpi).Msg("PDF rasterized")
	return images, nil
}
