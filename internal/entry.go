// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/scrivano/internal/api"
	"github.com/starford/scrivano/internal/classify"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/llm"
	"github.com/starford/scrivano/internal/mcpserver"
	"github.com/starford/scrivano/internal/pipeline"
	"github.com/starford/scrivano/internal/sse"
	"github.com/starford/scrivano/internal/storage"
	"github.com/starford/scrivano/internal/taxonomy"
)

// runtime bundles the initialized subsystems shared by all modes.
type runtime struct {
	cfg        *Config
	logger     *slog.Logger
	store      storage.Provider
	db         *journal.DB
	tax        *taxonomy.Taxonomy
	classifier *classify.Classifier
	proc       *pipeline.Processor
	layout     pipeline.Layout
}

func (rt *runtime) close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// buildRuntime initializes logging, workspace storage, the run journal,
// the taxonomy and the pipeline processor from the application options.
// logOut is where the structured logger writes (stderr for MCP mode, so
// the stdio transport keeps stdout to itself).
func buildRuntime(app *application, logOut io.Writer, events pipeline.EventFunc) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	layout := pipeline.Layout{
		Intake:   cfg.Workspace.Intake,
		Notebook: cfg.Workspace.Notebook,
		Archive:  cfg.Workspace.Archive,
	}

	logger.Info("Configuration loaded",
		slog.String("workspace", cfg.Workspace.Path),
		slog.String("taxonomy", cfg.Taxonomy.Path),
		slog.String("journal", cfg.Journal.Path),
		slog.Bool("dry_run", app.dryRun),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the workspace folders exist.
	for _, dir := range []string{layout.Intake, layout.Notebook, layout.Archive} {
		if err := os.MkdirAll(filepath.Join(cfg.Workspace.Path, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	tax, err := taxonomy.LoadOrInit(cfg.Taxonomy.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	client := app.llmClient
	if client == nil {
		client = llm.NewOpenAI(llm.Options{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
			Timeout:     cfg.LLM.Timeout(),
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	}

	classifier := classify.New(tax, client)
	proc := pipeline.NewProcessor(pipeline.Config{
		Store:          store,
		Classifier:     classifier,
		Namer:          pipeline.NewNamer(client),
		Generator:      pipeline.NewGenerator(client),
		Journal:        db,
		Layout:         layout,
		Logger:         logger,
		DryRun:         app.dryRun,
		SkipDuplicates: cfg.Pipeline.SkipDuplicates,
		Events:         events,
		Preview:        os.Stdout,
	})

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		db:         db,
		tax:        tax,
		classifier: classifier,
		proc:       proc,
		layout:     layout,
	}, nil
}

// RunBatch processes the given prompt files through the pipeline once and
// returns a summary. When files is empty the whole intake folder is swept.
// Files outside the intake folder are copied in before processing.
func RunBatch(ctx context.Context, files []string, opts ...Option) (*pipeline.Summary, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := buildRuntime(app, os.Stdout, nil)
	if err != nil {
		return nil, err
	}
	defer rt.close()

	if len(files) == 0 {
		sum, err := rt.proc.Batch(ctx)
		if err != nil {
			return nil, err
		}
		logSummary(rt.logger, sum)
		return sum, nil
	}

	sum := &pipeline.Summary{}
	intakeAbs := filepath.Join(rt.cfg.Workspace.Path, rt.layout.Intake)
	for _, f := range files {
		name, err := stageIntoIntake(rt.store, rt.layout, intakeAbs, f)
		if err != nil {
			rt.logger.Error("stage prompt failed", slog.String("file", f), slog.String("error", err.Error()))
			sum.Processed++
			sum.Failed++
			sum.Failures = append(sum.Failures, f)
			continue
		}

		run, err := rt.proc.Process(ctx, name)
		sum.Processed++
		switch {
		case err != nil:
			sum.Failed++
			sum.Failures = append(sum.Failures, name)
		case run != nil && run.Status == journal.StatusSkipped:
			sum.Skipped++
		default:
			sum.Succeeded++
		}
	}
	logSummary(rt.logger, sum)
	return sum, nil
}

// stageIntoIntake resolves a prompt file argument to an intake-relative
// name, copying the file into the intake folder when it lives elsewhere.
// Ineligible extensions are rejected up front so they never land in intake.
func stageIntoIntake(store storage.Provider, layout pipeline.Layout, intakeAbs, file string) (string, error) {
	if !pipeline.EligibleExt(file) {
		return "", fmt.Errorf("%s: not a %s prompt", filepath.Base(file), strings.Join(pipeline.IntakeExts, "/"))
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(intakeAbs, abs); err == nil && filepath.Dir(rel) == "." {
		return rel, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	written, err := store.WriteUnique(filepath.Join(layout.Intake, filepath.Base(abs)), data)
	if err != nil {
		return "", err
	}
	return filepath.Base(written), nil
}

func logSummary(logger *slog.Logger, sum *pipeline.Summary) {
	logger.Info("Batch finished",
		slog.Int("processed", sum.Processed),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped))
}

// Run starts watch mode: an initial intake sweep, the folder watcher and
// the status API, all shut down together on signal or context cancel.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	// SSE broker carries pipeline events to API clients. The broker is
	// assigned after the runtime exists (it snapshots journal stats), and
	// before any pipeline activity starts, so the closure never races.
	var broker *sse.Broker
	rt, err := buildRuntime(app, os.Stdout, func(kind string, run journal.Run) {
		broker.PublishRunEvent(kind, run)
	})
	if err != nil {
		return err
	}
	defer rt.close()
	cfg := rt.cfg
	logger := rt.logger

	broker = sse.NewBroker(2*time.Second, func() any {
		stats, err := rt.db.Stats()
		if err != nil {
			logger.Warn("stats snapshot failed", slog.String("error", err.Error()))
			return map[string]string{}
		}
		return stats
	})
	defer broker.Close()

	// Sweep prompts that accumulated while the watcher was down.
	if sum, err := rt.proc.Batch(ctx); err != nil {
		logger.Warn("initial sweep failed", slog.String("error", err.Error()))
	} else if sum.Processed > 0 {
		logSummary(logger, sum)
	}

	// Build API service and router.
	svc := api.NewService(rt.store, rt.db, rt.tax, rt.layout)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the intake folder watcher.
	g.Go(func() error {
		return pipeline.Watch(gCtx, rt.proc, cfg.Workspace.Path, logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP stdio server. Logs go to stderr so stdout stays
// reserved for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := buildRuntime(app, os.Stderr, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcpserver.New(rt.store, rt.db, rt.tax, rt.classifier, rt.proc)
	rt.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
