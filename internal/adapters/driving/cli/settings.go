package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

func newSettingsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage application settings",
		Long: `View and configure AI providers, storage and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsShow(cmd, app)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsShow(cmd, app)
		},
	}

	wizardCmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup wizard",
		Long:  `Run an interactive wizard to configure the embedding and LLM providers step by step.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsWizard(cmd, app)
		},
	}

	embeddingCmd := &cobra.Command{
		Use:   "embedding",
		Short: "Configure embedding provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Settings == nil {
				return errNotConfigured("settings")
			}
			return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingTarget(app.Settings))
		},
	}

	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Configure LLM provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Settings == nil {
				return errNotConfigured("settings")
			}
			return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmTarget(app.Settings))
		},
	}

	cmd.AddCommand(showCmd, wizardCmd, embeddingCmd, llmCmd, newSettingsSetKeyCommand(app))
	return cmd
}

func newSettingsSetKeyCommand(app *App) *cobra.Command {
	var (
		forEmbedding bool
		model        string
	)

	cmd := &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Select a provider and store its API key",
		Long: `Select the LLM provider (or, with --embedding, the embedding provider)
and store its API key. The key is read from the terminal without echo.

Providers: groq, google, openai, anthropic, ollama.

Examples:
  docportal settings set-key groq
  docportal settings set-key openai --embedding --model text-embedding-3-large`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Settings == nil {
				return errNotConfigured("settings")
			}

			target := llmTarget(app.Settings)
			if forEmbedding {
				target = embeddingTarget(app.Settings)
			}

			provider := domain.AIProvider(strings.ToLower(args[0]))
			if !target.supports(provider) {
				return fmt.Errorf("%w: %s is not a valid %s provider", domain.ErrInvalidInput, args[0], target.label)
			}

			var apiKey string
			if provider.RequiresAPIKey() {
				cmd.Printf("Enter %s API key: ", provider.Description())
				apiKey = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
				cmd.Println()
				if apiKey == "" {
					return errors.New("API key is required for this provider")
				}
			}

			return applyProvider(cmd, target, provider, model, apiKey)
		},
	}

	cmd.Flags().BoolVar(&forEmbedding, "embedding", false, "configure the embedding provider instead of the LLM")
	cmd.Flags().StringVar(&model, "model", "", "model name (default depends on the provider)")
	return cmd
}

func runSettingsShow(cmd *cobra.Command, app *App) error {
	if app.Settings == nil {
		return errNotConfigured("settings")
	}

	settings, err := app.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", app.Settings.ConfigPath())
	cmd.Println()

	storage := settings.Storage.Resolved()
	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", storage.DataDir)
	cmd.Printf("  Sessions: %s\n", storage.SessionsDir)
	cmd.Printf("  Indexes: %s\n", storage.IndexDir)
	cmd.Printf("  Catalog: %s\n", storage.CatalogPath)
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Chunk size: %d\n", settings.Ingestion.ChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Ingestion.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top k: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Keep latest sessions: %d\n", settings.Retention.KeepLatest)
	cmd.Println()

	if err := app.Settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docportal settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, app *App) error {
	if app.Settings == nil {
		return errNotConfigured("settings")
	}

	cmd.Println("docportal Settings Wizard")
	cmd.Println("=========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Documents are embedded for similarity search.")
	cmd.Println()
	if err := configureProvider(cmd, reader, embeddingTarget(app.Settings)); err != nil {
		return err
	}

	cmd.Println("Step 2: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM rewrites follow-up questions and writes the answers.")
	cmd.Println()
	if err := configureProvider(cmd, reader, llmTarget(app.Settings)); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := app.Settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

// providerTarget is one of the two configurable provider slots.
type providerTarget struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       func(provider domain.AIProvider, model, apiKey string) error
	validate  func(ctx context.Context) error
}

func embeddingTarget(s driving.SettingsService) providerTarget {
	return providerTarget{
		label:     "embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set:       s.SetEmbeddingProvider,
		validate:  s.ValidateEmbeddingConfig,
	}
}

func llmTarget(s driving.SettingsService) providerTarget {
	return providerTarget{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		set:       s.SetLLMProvider,
		validate:  s.ValidateLLMConfig,
	}
}

func (t providerTarget) supports(provider domain.AIProvider) bool {
	for _, p := range t.providers {
		if p == provider {
			return true
		}
	}
	return false
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, target providerTarget) error {
	cmd.Printf("Select %s Provider\n", target.label)
	for i, p := range target.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(target.providers), 1)
	provider := target.providers[idx-1]

	defaultModel := target.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	return applyProvider(cmd, target, provider, model, apiKey)
}

func applyProvider(cmd *cobra.Command, target providerTarget, provider domain.AIProvider, model, apiKey string) error {
	if err := target.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", target.label, err)
	}

	// A saved provider that does not answer is reported but kept.
	cmd.Print("Validating configuration... ")
	if err := target.validate(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", target.label, err)
	}
	cmd.Println("OK")

	if model == "" {
		model = target.defaults[provider]
	}
	cmd.Printf("%s provider configured: %s (%s)\n\n", target.label, provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
