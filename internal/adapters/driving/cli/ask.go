package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

func newAskCommand(app *App) *cobra.Command {
	var (
		sessionID   string
		k           int
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about a session's documents",
		Long: `Ask one question against the documents ingested into a session.

The session keeps its conversation history for the lifetime of the process,
so use 'docportal chat' for follow-up questions.

Examples:
  docportal ask --session session_20250101120000_ab12cd34 "What is the notice period?"
  docportal ask -s session_20250101120000_ab12cd34 --k 8 --sources "Who signs the contract?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Chat == nil {
				return errNotConfigured("chat")
			}

			answer, err := app.Chat.Ask(cmd.Context(), sessionID, strings.Join(args, " "), driving.WithTopK(k))
			if err != nil {
				return err
			}

			cmd.Println(answer.Text)
			if showSources {
				printSources(cmd, answer.Context)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to query (required)")
	cmd.Flags().IntVar(&k, "k", 0, "number of chunks to retrieve (default from settings)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "list the retrieved chunks after the answer")
	_ = cmd.MarkFlagRequired("session") //nolint:errcheck // flag is defined above

	return cmd
}

func printSources(cmd *cobra.Command, chunks []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i := range chunks {
		cmd.Printf("  [%d] %s (chunk %d, score %.3f)\n",
			i+1, chunks[i].Metadata.Source, chunks[i].Metadata.Position, chunks[i].Score)
	}
}
