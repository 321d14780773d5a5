package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		if formatter.Format != output.FormatTable {
			_ = formatter.Print(map[string]string{
				"version":    Version,
				"commit":     Commit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
			})
			return
		}

		formatter.PrintKeyValue("Version", Version)
		formatter.PrintKeyValue("Commit", Commit)
		formatter.PrintKeyValue("Build Date", BuildDate)
		formatter.PrintKeyValue("Go Version", runtime.Version())
	},
}
