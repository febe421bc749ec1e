package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCommand(app *App) *cobra.Command {
	var (
		sessionID   string
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation with a session",
		Long: `Read questions line by line and answer each one with the session's
history taken into account.

Type /reset to clear the history, exit or quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Chat == nil {
				return errNotConfigured("chat")
			}
			return runChat(cmd, app, sessionID, showSources)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to talk to (required)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "list the retrieved chunks after each answer")
	_ = cmd.MarkFlagRequired("session") //nolint:errcheck // flag is defined above

	return cmd
}

func runChat(cmd *cobra.Command, app *App, sessionID string, showSources bool) error {
	ctx := cmd.Context()
	cmd.Printf("Chatting with %s. Type /reset to clear the history, exit to leave.\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			if err := app.Chat.Reset(ctx, sessionID); err != nil {
				return err
			}
			cmd.Println("History cleared.")
			continue
		}

		answer, err := app.Chat.Ask(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// The conversation survives a failed turn; report and keep reading.
			cmd.Printf("Error: %v\n", err)
			continue
		}

		cmd.Println(answer.Text)
		if showSources {
			printSources(cmd, answer.Context)
		}
	}
}
