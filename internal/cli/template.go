package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NaserJamal/simple-ocr/internal/cli/output"
	"github.com/NaserJamal/simple-ocr/internal/render"
	"github.com/NaserJamal/simple-ocr/internal/template"
)

var (
	templateKey  string
	templateFile string
	templateList bool
)

var templateCmd = &cobra.Command{
	Use:   "template <file>",
	Short: "Extract structured fields using a document template",
	Long: `Template runs structured extraction against the first page of the
input: the template's prompt describes the fields to pull out and the
model is forced into JSON output mode.

Templates come from the builtin set or from a YAML registry file
(key -> name + prompt or prompt_file). Use --list to see what is
available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := template.NewRegistry()
		if templateFile != "" {
			var err error
			registry, err = template.LoadRegistry(templateFile)
			if err != nil {
				return err
			}
		}

		if templateList {
			var rows [][]string
			for _, entry := range registry.List() {
				rows = append(rows, []string{entry.Key, entry.Name})
			}
			formatter.PrintTable(output.TableData{
				Headers: []string{"Key", "Name"},
				Rows:    rows,
			})
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("input file required (or use --list)")
		}
		if templateKey == "" {
			return fmt.Errorf("--template is required, one of: %v", registry.Keys())
		}

		client, err := newVLMClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		pages, err := loadPages(cmd, args[0])
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			return fmt.Errorf("input has no pages")
		}

		canvas, err := render.PrepareCanvas(pages[0], cfg.VLM.TargetSize)
		if err != nil {
			return err
		}

		parser := template.NewParser(client, registry)
		fields, err := parser.Extract(cmd.Context(), canvas.Base64, templateKey)
		if err != nil {
			return err
		}

		return formatter.Print(fields)
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateKey, "template", "t", "",
		"template key to extract with")
	templateCmd.Flags().StringVar(&templateFile, "templates-file", "",
		"YAML registry replacing the builtin templates")
	templateCmd.Flags().BoolVarP(&templateList, "list", "l", false,
		"list available templates")
}
