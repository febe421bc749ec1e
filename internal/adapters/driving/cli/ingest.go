package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/adapters/driving/uploads"
)

func newIngestCommand(app *App) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Ingest documents into a session",
		Long: `Store, split, embed and index documents so they can be queried.

Supported types: pdf, docx, md, txt. Other files are skipped.
Without --session a new session is created and its ID printed.

Examples:
  docportal ingest contract.pdf notes.md
  docportal ingest --session session_20250101120000_ab12cd34 appendix.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Ingestion == nil {
				return errNotConfigured("ingestion")
			}

			files, err := uploads.ReadFiles(args...)
			if err != nil {
				return err
			}

			result, err := app.Ingestion.Ingest(cmd.Context(), sessionID, files)
			if err != nil {
				return err
			}

			cmd.Printf("Session: %s\n", result.Session.ID)
			for i := range result.Files {
				cmd.Printf("  + %s\n", result.Files[i].OriginalName)
			}
			for _, name := range result.Skipped {
				cmd.Printf("  - %s (unsupported type, skipped)\n", name)
			}
			cmd.Printf("Chunks: %d (%d new, %d already indexed)\n",
				result.Chunks, result.Added.Inserted, result.Added.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "add the files to an existing session")
	return cmd
}
