// Package app wires the driven adapters and core services into one graph.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docportal/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/docportal/internal/adapters/driven/config/file"
	indexfile "github.com/custodia-labs/docportal/internal/adapters/driven/indexstore/file"
	"github.com/custodia-labs/docportal/internal/adapters/driven/storage/localfs"
	"github.com/custodia-labs/docportal/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docportal/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docportal/internal/adapters/driving/cli"
	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/services"
	"github.com/custodia-labs/docportal/internal/logger"
	"github.com/custodia-labs/docportal/internal/normalisers"
	"github.com/custodia-labs/docportal/internal/postprocessors"
)

// Options configures Build.
type Options struct {
	// ConfigDir holds config.toml and the prompts directory.
	// Empty means ~/.docportal.
	ConfigDir string

	// ConfigFile overrides the config file. .yaml and .yml files are read as YAML.
	ConfigFile string

	// Verbose enables debug output regardless of log.verbose.
	Verbose bool

	// LookupEnv replaces os.LookupEnv for settings overrides.
	LookupEnv func(string) (string, bool)

	// Console receives console log output. Defaults to stderr.
	Console io.Writer
}

// Container holds the built services and the resources they share.
type Container struct {
	Settings   *services.SettingsService
	Sessions   *services.SessionService
	Ingestion  *services.IngestionService
	Chat       *services.ChatService
	Comparison *services.ComparisonService
	Analysis   *services.AnalysisService
	Prompts    *configfile.PromptStore
	Log        *logger.Logger

	// Unavailable reports AI providers that could not be built.
	// Commands that need them fail with the same error.
	Unavailable error

	aiServices *ai.InitResult
	closers    []func() error
}

// Build loads the settings and constructs every adapter and service.
// Missing AI providers do not fail the build; see Container.Unavailable.
func Build(ctx context.Context, opts Options) (*Container, error) {
	c := &Container{}
	if err := c.build(ctx, opts); err != nil {
		c.Close() //nolint:errcheck // the build error is what matters
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, opts Options) error {
	settingsService, err := newSettingsService(opts)
	if err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	c.Settings = settingsService

	c.Log = logger.New(logger.Options{
		Verbose: opts.Verbose || settings.Log.Verbose,
		File:    settings.Log.File,
		Console: opts.Console,
	})
	c.closers = append(c.closers, func() error {
		c.Log.Sync() //nolint:errcheck // stderr cannot always be synced
		return nil
	})
	c.Log.Section("startup")

	storage := settings.Storage.Resolved()
	c.Log.Debug("data dir %s", storage.DataDir)

	catalog, err := sqlite.NewStore(storage.CatalogPath)
	if err != nil {
		return fmt.Errorf("opening session catalog: %w", err)
	}
	c.closers = append(c.closers, catalog.Close)

	blobs, err := localfs.NewBlobStore(storage.SessionsDir)
	if err != nil {
		return fmt.Errorf("opening session storage: %w", err)
	}
	staging, err := localfs.NewBlobStore(storage.CompareDir)
	if err != nil {
		return fmt.Errorf("opening comparison staging: %w", err)
	}
	indexStore, err := indexfile.NewStore(storage.IndexDir)
	if err != nil {
		return fmt.Errorf("opening index store: %w", err)
	}

	pipeline, err := newPipeline(settings.Ingestion)
	if err != nil {
		return err
	}
	c.Log.Debug("splitting pipeline: %s", strings.Join(pipeline.Names(), " -> "))
	registry := normalisers.NewDefaultRegistry()

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	c.Prompts, err = configfile.NewPromptStore(promptDir)
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}

	c.aiServices, c.Unavailable = ai.Init(ctx, settings)
	if c.Unavailable != nil {
		c.Log.Warn("%v", c.Unavailable)
	}
	c.closers = append(c.closers, func() error {
		c.aiServices.Close()
		return nil
	})

	embedder, llm := c.aiServices.EmbeddingService, c.aiServices.LLMService
	history := memory.NewHistoryStore(settings.History.TTL)

	indexes := services.NewIndexManager(indexStore, c.Log.With("component", "index"))
	retrievers := services.NewRetrieverFactory(indexes, embedder, services.RetrieverConfig{
		TopK:             settings.Retrieval.TopK,
		EmbeddingTimeout: settings.Timeouts.Embedding,
	})

	c.Sessions = services.NewSessionService(catalog, blobs, indexes, c.Log.With("component", "sessions"))
	c.Ingestion = services.NewIngestionService(c.Sessions, catalog, blobs, registry, pipeline,
		embedder, indexes, retrievers, services.IngestionConfigFrom(settings), c.Log.With("component", "ingestion"))
	c.Chat = services.NewChatService(c.Sessions, llm, history, c.Prompts, retrievers,
		services.ConversationConfigFrom(settings), c.Log.With("component", "chat"))

	gen := services.GenerationConfigFrom(settings)
	c.Comparison = services.NewComparisonService(staging, registry, llm, c.Prompts, gen,
		settings.Timeouts.Extraction, c.Log.With("component", "comparison"))
	c.Analysis = services.NewAnalysisService(registry, llm, c.Prompts, gen,
		settings.Timeouts.Extraction, c.Log.With("component", "analysis"))

	return nil
}

func newSettingsService(opts Options) (*services.SettingsService, error) {
	var (
		store driven.ConfigStore
		err   error
	)
	if opts.ConfigFile != "" {
		store, err = configfile.NewConfigStoreAt(opts.ConfigFile)
	} else {
		store, err = configfile.NewConfigStore(opts.ConfigDir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	var settingsOpts []services.SettingsOption
	if opts.LookupEnv != nil {
		settingsOpts = append(settingsOpts, services.WithEnv(opts.LookupEnv))
	}
	return services.NewSettingsService(store, ai.NewConfigValidator(), settingsOpts...), nil
}

func newPipeline(settings domain.IngestionSettings) (*postprocessors.Pipeline, error) {
	pipeline, err := postprocessors.NewRegistry().Pipeline(domain.PipelineConfigFor(settings))
	if err != nil {
		return nil, fmt.Errorf("building splitting pipeline: %w", err)
	}
	return pipeline, nil
}

// WatchPrompts reloads prompt templates on change until ctx is cancelled.
func (c *Container) WatchPrompts(ctx context.Context) error {
	return configfile.WatchPrompts(ctx, c.Prompts, c.Log.With("component", "prompts"))
}

// Bind points the command line app at the container's services.
func (c *Container) Bind(app *cli.App) {
	app.Settings = c.Settings
	app.Sessions = c.Sessions
	app.Ingestion = c.Ingestion
	app.Chat = c.Chat
	app.Comparison = c.Comparison
	app.Analysis = c.Analysis
	app.Log = c.Log
	app.Watch = c.WatchPrompts
}

// Close releases the container's resources in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
