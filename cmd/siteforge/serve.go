package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/siteforge/siteforge/internal/adapters/primary/http"
	configloader "github.com/siteforge/siteforge/internal/adapters/secondary/config"
	"github.com/siteforge/siteforge/internal/adapters/secondary/generator"
	"github.com/siteforge/siteforge/internal/adapters/secondary/runner"
	"github.com/siteforge/siteforge/internal/adapters/secondary/scaffold"
	"github.com/siteforge/siteforge/internal/adapters/secondary/watcher"
	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
	"github.com/siteforge/siteforge/internal/domain/services"
)

// serveCmd starts the orchestrator API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the siteforge API and real-time server",
	Long: `Start the siteforge server: the HTTP API for creating, building,
serving and deleting sites, and the websocket endpoint that streams
lifecycle and file-change events to connected clients.

Example:
  siteforge serve
  siteforge serve --config ./siteforge.toml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Sites.RootDir, 0o755); err != nil {
		return fmt.Errorf("creating sites root %s: %w", cfg.Sites.RootDir, err)
	}

	app := buildApplication(cfg, logger)
	return runApplication(cmd.Context(), cfg, app, logger)
}

// application bundles everything the serve command wires together
type application struct {
	server   *httpadapter.Server
	connMgr  *httpadapter.ConnectionManager
	preview  *services.ServeOrchestrator
	busUnsub func()
}

// buildApplication wires the services and adapters
func buildApplication(cfg *entities.Config, logger *slog.Logger) *application {
	bus := services.NewEventBus(logger)
	locks := services.NewSiteLocks()
	registry := services.NewSiteRegistry(bus, logger)

	toolRunner := runner.NewCommandRunner(cfg.Tool.Command, logger)
	treeWatcher := watcher.NewRecursiveWatcher(cfg.Watcher.Interval(), cfg.Watcher.Debounce(), logger)
	materializer := scaffold.NewMaterializer(cfg.Sites.RootDir, logger)

	var gen ports.Generator
	if cfg.Generator.Endpoint != "" {
		gen = generator.NewHTTPClient(cfg.Generator, logger)
	} else {
		logger.Warn("no generator endpoint configured, using static scaffolds")
		gen = generator.NewStaticGenerator()
	}

	builder := services.NewBuildOrchestrator(registry, toolRunner, bus, locks, cfg.Tool, logger)
	preview := services.NewServeOrchestrator(registry, toolRunner, treeWatcher, bus, locks, cfg.Tool, cfg.Preview, logger)
	sites := services.NewSiteService(registry, gen, materializer, preview, locks, logger)

	httpLogger := httpadapter.NewHTTPLoggerWithLevel("server", cfg.Logging.Verbose, cfg.Logging.GetLevel())
	connMgr := httpadapter.NewConnectionManager(sites, 30*time.Second, httpLogger)
	unsubscribe := bus.Subscribe(connMgr.HandleEvent)

	server := httpadapter.NewServer(sites, builder, preview, connMgr, &cfg.Server, httpLogger)

	return &application{
		server:   server,
		connMgr:  connMgr,
		preview:  preview,
		busUnsub: unsubscribe,
	}
}

// runApplication starts the server and tears everything down on ctx cancel
func runApplication(ctx context.Context, cfg *entities.Config, app *application, logger *slog.Logger) error {
	go app.connMgr.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	app.preview.StopAll(shutdownCtx)
	app.busUnsub()
	if err := app.server.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// loadConfig loads and validates configuration, honoring the --config flag
func loadConfig(cmd *cobra.Command) (*entities.Config, error) {
	var loader ports.ConfigLoader
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader = configloader.NewTOMLLoaderAt(path)
	} else {
		loader = configloader.NewTOMLLoader()
	}

	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Verbose = true
		if cfg.Logging.GetLevel() != entities.LogLevelDebug {
			cfg.Logging.Level = string(entities.LogLevelDebug)
		}
	}
	return cfg, nil
}

// newLogger builds the slog logger used by domain services
func newLogger(cfg entities.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.GetLevel() {
	case entities.LogLevelDebug:
		level = slog.LevelDebug
	case entities.LogLevelWarn:
		level = slog.LevelWarn
	case entities.LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G304 - operator-configured log path
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}
