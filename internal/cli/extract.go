package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
)

var (
	extractOut   string
	extractNoOCR bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract text from a PDF with quality-gated OCR fallback",
	Long: `Extract pulls the native text layer out of each PDF page, scores it
with the quality heuristics, and re-extracts low-scoring pages through
the configured OCR provider. The per-page decisions are printed as a
table and the combined text is written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		extractor, err := newExtractor(extractNoOCR)
		if err != nil {
			return err
		}

		result, err := extractor.ExtractPDF(cmd.Context(), data)
		if err != nil {
			return err
		}

		if formatter.Format == output.FormatTable {
			rows := make([][]string, len(result.Pages))
			for i, page := range result.Pages {
				rows[i] = []string{
					strconv.Itoa(page.Page + 1),
					string(page.Source),
					strconv.Itoa(page.Report.Score),
					strings.Join(page.Report.Reasons, "; "),
				}
			}
			formatter.PrintTable(output.TableData{
				Headers: []string{"Page", "Source", "Score", "Reasons"},
				Rows:    rows,
			})
		} else {
			if err := formatter.Print(result); err != nil {
				return err
			}
		}

		outPath := extractOut
		if outPath == "" {
			outPath, err = outputPath(baseName(args[0]) + ".txt")
			if err != nil {
				return err
			}
		}
		if err := os.WriteFile(outPath, []byte(result.Text), 0o644); err != nil {
			return fmt.Errorf("failed to write extracted text: %w", err)
		}

		formatter.PrintSuccess("Extracted text written to " + outPath)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOut, "out", "",
		"path for the combined text (default <output_dir>/<input>.txt)")
	extractCmd.Flags().BoolVar(&extractNoOCR, "no-ocr", false,
		"disable the OCR fallback, keep native text only")
}
