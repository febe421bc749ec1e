package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/adapters/driving/uploads"
)

func newCompareCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <reference.pdf> <actual.pdf>",
		Short: "List the changes between two PDF documents",
		Long: `Compare an actual PDF against a reference PDF and print one row per
page or section that differs.

Examples:
  docportal compare contract-v1.pdf contract-v2.pdf
  docportal compare --json contract-v1.pdf contract-v2.pdf > changes.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Comparison == nil {
				return errNotConfigured("comparison")
			}

			files, err := uploads.ReadFiles(args...)
			if err != nil {
				return err
			}

			rows, err := app.Comparison.CompareFiles(cmd.Context(), files[0], files[1])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(rows) == 0 {
				cmd.Println("No changes found.")
				return nil
			}
			for _, row := range rows {
				cmd.Printf("Page %s: %s\n", row.Page, row.Changes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the change-list as JSON")
	return cmd
}
