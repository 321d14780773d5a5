package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/layout"
	"github.com/NaserJamal/simple-ocr/internal/markdown"
	"github.com/NaserJamal/simple-ocr/internal/render"
)

var markdownOut string

var markdownCmd = &cobra.Command{
	Use:   "markdown <file.pdf>",
	Short: "Reconstruct a PDF into a single markdown document",
	Long: `Markdown runs the full layout pipeline: every page is rendered and
sent through section detection, each detected section is cropped and
OCRed as markdown, and the labeled section texts are reconstructed
into one cohesive markdown document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newVLMClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		pages, err := loadPages(cmd, args[0])
		if err != nil {
			return err
		}

		detector := layout.NewDetector(client, cfg.VLM.TargetSize)
		extractor := layout.NewSectionExtractor(client, cfg.Extract.MaxWorkers)

		results := make([]layout.PageSections, 0, len(pages))
		for i, page := range pages {
			canvas, err := render.PrepareCanvas(page, cfg.VLM.TargetSize)
			if err != nil {
				return fmt.Errorf("failed to prepare page %d: %w", i+1, err)
			}

			sections, err := detector.DetectSections(cmd.Context(), canvas.Base64, i)
			if err != nil {
				return fmt.Errorf("section detection failed on page %d: %w", i+1, err)
			}

			geom := layout.Geometry{Width: canvas.Width, Height: canvas.Height, Scale: canvas.Scale}
			for j := range sections {
				sections[j].Rect = layout.Denormalize(sections[j].Rect, geom)
			}

			sections = extractor.ExtractSections(cmd.Context(), page, sections, i)

			results = append(results, layout.PageSections{
				Page:     i,
				Sections: sections,
				Width:    canvas.Width,
				Height:   canvas.Height,
			})
		}

		doc, err := markdown.NewReconstructor(client).Reconstruct(cmd.Context(), results)
		if err != nil {
			return err
		}

		outPath := markdownOut
		if outPath == "" {
			outPath, err = outputPath(baseName(args[0]) + ".md")
			if err != nil {
				return err
			}
		}
		if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("failed to write markdown: %w", err)
		}

		formatter.PrintSuccess("Reconstructed markdown written to " + outPath)
		return nil
	},
}

func init() {
	markdownCmd.Flags().StringVar(&markdownOut, "out", "",
		"path for the markdown document (default <output_dir>/<input>.md)")
}
