package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
	"github.com/NaserJamal/simple-ocr/internal/layout"
	"github.com/NaserJamal/simple-ocr/internal/render"
)

var (
	layoutPage       int
	layoutPromptFile string
)

var layoutCmd = &cobra.Command{
	Use:   "layout <file>",
	Short: "Detect document sections with the vision model",
	Long: `Layout renders each page onto the square canvas the vision model
expects, asks it for section bounding boxes, and maps the boxes back
into original page pixels. Accepts a PDF or a single page image.`,
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

		var opts []layout.DetectorOption
		if layoutPromptFile != "" {
			opts = append(opts, layout.WithPromptFile(layoutPromptFile))
		}
		detector := layout.NewDetector(client, cfg.VLM.TargetSize, opts...)

		var results []layout.PageSections
		for i, page := range pages {
			if layoutPage > 0 && layoutPage != i+1 {
				continue
			}

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

			results = append(results, layout.PageSections{
				Page:     i,
				Sections: sections,
				Width:    canvas.Width,
				Height:   canvas.Height,
			})
		}

		if layoutPage > 0 && len(results) == 0 {
			return fmt.Errorf("page %d not found (document has %d pages)", layoutPage, len(pages))
		}

		if formatter.Format == output.FormatTable {
			var rows [][]string
			for _, page := range results {
				for _, section := range page.Sections {
					rows = append(rows, []string{
						strconv.Itoa(page.Page + 1),
						section.Type,
						section.Confidence,
						fmt.Sprintf("[%.0f, %.0f, %.0f, %.0f]",
							section.Rect.X0, section.Rect.Y0, section.Rect.X1, section.Rect.Y1),
						section.Description,
					})
				}
			}
			formatter.PrintTable(output.TableData{
				Headers: []string{"Page", "Type", "Confidence", "BBox", "Description"},
				Rows:    rows,
			})
			return nil
		}
		return formatter.Print(results)
	},
}

func init() {
	layoutCmd.Flags().IntVar(&layoutPage, "page", 0,
		"only detect on this page (1-based, default all)")
	layoutCmd.Flags().StringVar(&layoutPromptFile, "prompt-file", "",
		"file with a custom section detection prompt")
}
