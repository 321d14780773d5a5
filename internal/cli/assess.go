package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
)

var assessThreshold int

var assessCmd = &cobra.Command{
	Use:   "assess [file]",
	Short: "Score a block of text with the quality heuristics",
	Long: `Assess scores text on a 0-100 scale using the extraction quality
heuristics and reports whether it would be accepted or sent to OCR.

Reads from the given file, or from stdin when no file (or "-") is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		assessor, err := newAssessor()
		if err != nil {
			return err
		}

		threshold := assessor.Threshold()
		if cmd.Flags().Changed("threshold") {
			threshold = assessThreshold
		}

		report := assessor.Assess(string(data))
		acceptable := report.Acceptable(threshold)

		if formatter.Format != output.FormatTable {
			return formatter.Print(map[string]any{
				"score":      report.Score,
				"threshold":  threshold,
				"acceptable": acceptable,
				"reasons":    report.Reasons,
			})
		}

		formatter.PrintKeyValue("Score", strconv.Itoa(report.Score))
		formatter.PrintKeyValue("Threshold", strconv.Itoa(threshold))
		formatter.PrintKeyValue("Acceptable", strconv.FormatBool(acceptable))
		if len(report.Reasons) > 0 {
			formatter.PrintKeyValue("Reasons", strings.Join(report.Reasons, "; "))
		}

		if !acceptable {
			// Non-zero exit so scripts can branch on the decision.
			cmd.SilenceErrors = true
			return fmt.Errorf("text quality %d below threshold %d", report.Score, threshold)
		}
		return nil
	},
}

func init() {
	assessCmd.Flags().IntVar(&assessThreshold, "threshold", 70,
		"acceptance threshold override")
}
