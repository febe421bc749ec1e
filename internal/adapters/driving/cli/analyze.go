package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/adapters/driving/uploads"
	"github.com/custodia-labs/docportal/internal/core/domain"
)

func newAnalyzeCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Summarise a document and extract its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Analysis == nil {
				return errNotConfigured("analysis")
			}

			file, err := uploads.ReadFile(args[0])
			if err != nil {
				return err
			}

			meta, err := app.Analysis.Analyze(cmd.Context(), file)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(meta)
			}
			printMetadata(cmd, meta)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the metadata as JSON")
	return cmd
}

func printMetadata(cmd *cobra.Command, meta *domain.DocumentMetadata) {
	field := func(label, value string) {
		if value != "" {
			cmd.Printf("%-15s %s\n", label+":", value)
		}
	}

	field("Title", meta.Title)
	field("Author", strings.Join(meta.Author, ", "))
	field("Created", meta.DateCreated)
	field("Last modified", meta.LastModifiedDate)
	field("Publisher", meta.Publisher)
	field("Language", meta.Language)
	field("Pages", string(meta.PageCount))
	field("Tone", meta.SentimentTone)

	cmd.Println()
	cmd.Println("Summary:")
	for _, point := range meta.Summary {
		cmd.Printf("  - %s\n", point)
	}
}
