package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"para/internal/api"
	"para/internal/assets"
	"para/internal/auth"
	"para/internal/config"
	"para/internal/db"
	"para/internal/llm"
	"para/internal/logging"
	"para/internal/pipeline"
	"para/internal/ratelimit"
	"para/internal/research"
	"para/internal/webhook"
)

const (
	serverVersion   = "0.1.0-dev"
	defaultAssetDir = "./assets"
	sweepInterval   = 5 * time.Minute
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "export" {
		if err := runExport(os.Args[2:], os.Stdout); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		return
	}

	var (
		configPath = flag.String("config", "", "optional YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides PARA_HTTP_ADDR)")
		dbPath     = flag.String("db", "", "path to SQLite database (overrides PARA_DB_PATH)")
		seed       = flag.Bool("seed", true, "create the starter agent when none exist")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	if *seed {
		agent, err := db.SeedDefaultAgent(context.Background(), database)
		if err != nil {
			logger.Fatal("seed default agent", zap.Error(err))
		}
		if agent != nil {
			logger.Info("seeded default agent", zap.String("agent_id", agent.ID), zap.String("channel", agent.ChannelName))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, database, logger)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("para-server listening",
		zap.String("addr", server.Addr),
		zap.String("version", serverVersion),
		zap.Bool("runs_enabled", srv.configErr == nil),
	)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	<-shutdownDone
	srv.close()
}

type serverApp struct {
	handler   http.Handler
	configErr error
	close     func()
}

// newServer wires the pipeline behind the HTTP router. Missing model or
// search credentials do not stop the server: run requests report the
// configuration error instead.
func newServer(ctx context.Context, cfg config.Config, database *sql.DB, logger *zap.Logger) (*serverApp, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	publisher, assetDir := newPublisher(cfg)

	var (
		runner     api.Runner
		dispatcher *webhook.Dispatcher
	)
	configErr := cfg.Validate()
	if configErr != nil {
		logger.Warn("agent runs disabled", zap.Error(configErr))
	} else {
		gateway, err := llm.New(ctx, llm.Config{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
		}, publisher, logger.Named("llm"))
		if err != nil {
			return nil, err
		}
		dispatcher = webhook.NewDispatcher(database, logger.Named("webhook"))
		runner = pipeline.New(database, gateway, gateway,
			research.NewClient(cfg.TavilyAPIKey, cfg.TavilyBaseURL, httpClient, logger.Named("research")),
			pipeline.Options{
				Models: pipeline.ModelNames{
					Pro:   cfg.ModelPro,
					Light: cfg.ModelLight,
					Image: cfg.ImageModel,
				},
				Logger:   logger.Named("pipeline"),
				Notifier: dispatcher,
			})
	}

	tokenHash := ""
	if strings.TrimSpace(cfg.APIToken) != "" {
		tokenHash = auth.HashToken(strings.TrimSpace(cfg.APIToken))
	} else {
		logger.Warn("PARA_API_TOKEN not set, API is unauthenticated")
	}

	limiter := ratelimit.NewLimiter()
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	go sweepLimiter(sweepCtx, limiter, time.Hour)

	handler := api.NewRouter(database, api.Options{
		Version:   serverVersion,
		Runner:    runner,
		ConfigErr: configErr,
		Logger:    logger,
		TokenHash: tokenHash,
		Limiter:   limiter,
		RunLimit:  cfg.RunRateLimit,
		RunWindow: time.Hour,
		AssetDir:  assetDir,
	})

	return &serverApp{
		handler:   handler,
		configErr: configErr,
		close: func() {
			cancelSweep()
			if dispatcher != nil {
				dispatcher.Wait()
			}
		},
	}, nil
}

// newPublisher picks Supabase Storage when credentials are present and the
// local asset directory otherwise. The returned dir is served under /assets.
func newPublisher(cfg config.Config) (assets.Publisher, string) {
	if cfg.SupabaseEnabled() {
		return assets.NewSupabasePublisher(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, &http.Client{Timeout: cfg.HTTPTimeout}), ""
	}
	dir := cfg.AssetDir
	if dir == "" {
		dir = defaultAssetDir
	}
	return assets.NewDirPublisher(dir, strings.TrimSuffix(cfg.PublicURL, "/")+"/assets"), dir
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.Limiter, window time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Sweep(now.Add(-window))
		}
	}
}

func runExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dbPath := fs.String("db", config.DefaultDBPath, "path to SQLite database")
	outPath := fs.String("out", "", "output file (stdout when empty)")
	agentID := fs.String("agent", "", "export a single agent")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.OpenMigrated(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	export, err := db.ExportJSON(context.Background(), database, db.ExportOptions{AgentID: *agentID})
	if err != nil {
		return err
	}
	b, err := export.MarshalIndent()
	if err != nil {
		return err
	}
	if *outPath == "" {
		_, err = stdout.Write(b)
		return err
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %d agents to %s\n", len(export.Agents), *outPath)
	return nil
}
