// Package cli provides the Cobra commands for the simple-ocr CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
	"github.com/NaserJamal/simple-ocr/internal/config"
	"github.com/NaserJamal/simple-ocr/internal/extract"
	"github.com/NaserJamal/simple-ocr/internal/ocr"
	"github.com/NaserJamal/simple-ocr/internal/quality"
	"github.com/NaserJamal/simple-ocr/internal/render"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	cfg       *config.Config
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "simpleocr",
	Short: "simple-ocr - Quality-gated PDF text extraction",
	Long: `simple-ocr extracts text from PDF documents, scores the native text
layer with a set of quality heuristics, and falls back to OCR for pages
whose text is too degraded to trust.

Commands:
  extract    Extract text from a PDF with quality-gated OCR fallback
  assess     Score a block of text with the quality heuristics
  layout     Detect document sections with the vision model
  template   Extract structured fields using a document template
  markdown   Reconstruct a PDF into a single markdown document

Configuration comes from simpleocr.yaml, a .env file, or SIMPLEOCR_*
environment variables. The vision model commands need OCR_MODEL_API_KEY,
OCR_MODEL_BASE_URL and OCR_MODEL_NAME (or their vlm.* equivalents).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceErrors = quiet

		switch {
		case debug:
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case quiet:
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		default:
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}

		format, err := output.ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, noHeaders, quiet)

		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(markdownCmd)
}

// newAssessor builds the quality assessor from config
func newAssessor() (*quality.Assessor, error) {
	return quality.New(cfg.QualityAssessorConfig())
}

// newVLMClient builds the vision model client; commands that need it fail
// early with a configuration error instead of at first request.
func newVLMClient() (*vlm.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return vlm.NewClient(vlm.Config{
		APIKey:            cfg.VLM.APIKey,
		BaseURL:           cfg.VLM.BaseURL,
		Model:             cfg.VLM.Model,
		MaxTokens:         cfg.VLM.MaxTokens,
		Temperature:       cfg.VLM.Temperature,
		RequestsPerSecond: cfg.VLM.RequestsPerSecond,
	})
}

// newOCRService wires the configured OCR provider. The VLM client is only
// built when the provider actually needs one.
func newOCRService(rasterizer *render.Rasterizer, disabled bool) (*ocr.Service, error) {
	enabled := cfg.OCR.Enabled && !disabled

	var client *vlm.Client
	if enabled && ocr.ProviderType(cfg.OCR.Provider) == ocr.ProviderTypeVLM {
		var err error
		client, err = newVLMClient()
		if err != nil {
			return nil, fmt.Errorf("OCR provider %q needs a vision model: %w", cfg.OCR.Provider, err)
		}
	}

	return ocr.NewService(ocr.ServiceConfig{
		Enabled: enabled,
		Provider: ocr.ProviderConfig{
			Type:       ocr.ProviderType(cfg.OCR.Provider),
			Languages:  cfg.OCR.Languages,
			VLM:        client,
			Rasterizer: rasterizer,
		},
	})
}

// newExtractor assembles the quality-gated extraction pipeline
func newExtractor(disableOCR bool) (*extract.Extractor, error) {
	assessor, err := newAssessor()
	if err != nil {
		return nil, err
	}

	rasterizer := render.NewRasterizer(cfg.Render.DPI)

	service, err := newOCRService(rasterizer, disableOCR)
	if err != nil {
		return nil, err
	}

	return extract.New(extract.Config{
		Assessor:   assessor,
		OCR:        service,
		Rasterizer: rasterizer,
		MaxWorkers: cfg.Extract.MaxWorkers,
		Languages:  cfg.OCR.Languages,
	})
}

// loadPages reads the input as per-page PNGs: PDFs are rasterized, images
// pass through as a single page.
func loadPages(cmd *cobra.Command, path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		rasterizer := render.NewRasterizer(cfg.Render.DPI)
		if !rasterizer.Available() {
			return nil, fmt.Errorf("pdftoppm not found; install poppler-utils to process PDFs")
		}
		return rasterizer.PageImages(cmd.Context(), data)
	}

	return [][]byte{data}, nil
}

// outputPath joins the configured output directory with name, creating the
// directory when needed.
func outputPath(name string) (string, error) {
	dir := cfg.Extract.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
