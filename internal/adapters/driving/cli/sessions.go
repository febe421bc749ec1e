package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func newSessionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage ingestion sessions",
	}

	cmd.AddCommand(newSessionsListCommand(app), newSessionsCleanCommand(app))
	return cmd
}

func newSessionsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Sessions == nil {
				return errNotConfigured("session")
			}

			summaries, err := app.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				cmd.Println("No sessions. Run 'docportal ingest <files...>' to create one.")
				return nil
			}

			for i := range summaries {
				session := summaries[i].Session
				names := make([]string, len(summaries[i].Files))
				for j := range summaries[i].Files {
					names[j] = summaries[i].Files[j].OriginalName
				}
				cmd.Printf("%s  %s  %s\n",
					session.ID, session.CreatedAt.UTC().Format("2006-01-02 15:04"), strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func newSessionsCleanCommand(app *App) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all but the newest sessions",
		Long: `Remove old sessions together with their files, indexes and history.

Sessions that are still being written are never removed.
--keep defaults to retention.keep_latest from the settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Sessions == nil {
				return errNotConfigured("session")
			}

			if !cmd.Flags().Changed("keep") {
				keep = defaultKeepLatest(app)
			}

			removed, err := app.Sessions.CleanOldSessions(cmd.Context(), keep)
			if err != nil {
				return err
			}

			for _, id := range removed {
				cmd.Printf("Removed %s\n", id)
			}
			cmd.Printf("%d session(s) removed, keeping the newest %d.\n", len(removed), keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of newest sessions to keep")
	return cmd
}

func defaultKeepLatest(app *App) int {
	if app.Settings != nil {
		if settings, err := app.Settings.Get(); err == nil {
			return settings.Retention.KeepLatest
		}
	}
	return domain.DefaultAppSettings().Retention.KeepLatest
}
