// Package cli provides the docportal command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// annotationSkipSetup marks commands that run without the service graph.
const annotationSkipSetup = "docportal/skip-setup"

// App holds the services driven by the commands.
// Commands check the service they need and fail when it is nil.
type App struct {
	Version string

	Settings   driving.SettingsService
	Ingestion  driving.IngestionService
	Chat       driving.ChatService
	Sessions   driving.SessionService
	Comparison driving.ComparisonService
	Analysis   driving.AnalysisService
	Log        *logger.Logger

	// Setup fills in the services before a command runs.
	// It receives the value of the --verbose flag.
	Setup func(app *App, verbose bool) error

	// Watch runs background work for long-lived commands until ctx is done.
	Watch func(ctx context.Context) error
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "docportal",
		Short: "Ask questions about your documents",
		Long: `docportal ingests PDF, Word, Markdown and text files into sessions,
answers follow-up questions against them, and compares documents.

Configure an embedding and an LLM provider first:
  docportal settings wizard`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if app.Setup == nil || cmd.Annotations[annotationSkipSetup] != "" {
				return nil
			}
			return app.Setup(app, verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")

	root.AddCommand(
		newIngestCommand(app),
		newAskCommand(app),
		newChatCommand(app),
		newCompareCommand(app),
		newAnalyzeCommand(app),
		newSessionsCommand(app),
		newSettingsCommand(app),
		newMCPCommand(app),
		newVersionCommand(app),
	)

	return root
}

// Execute runs the command tree against the process arguments.
func Execute(ctx context.Context, app *App) error {
	return NewRootCommand(app).ExecuteContext(ctx)
}

func errNotConfigured(service string) error {
	return errors.New(service + " service not configured")
}
