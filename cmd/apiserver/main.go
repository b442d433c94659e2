// API server entry point for ChemScribe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/ChemScribe/internal/application/corpus"
	"github.com/turtacn/ChemScribe/internal/application/documents"
	"github.com/turtacn/ChemScribe/internal/application/workflow"
	"github.com/turtacn/ChemScribe/internal/config"
	domlit "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/ai"
	"github.com/turtacn/ChemScribe/internal/infrastructure/chem"
	"github.com/turtacn/ChemScribe/internal/infrastructure/database/postgres"
	redisinfra "github.com/turtacn/ChemScribe/internal/infrastructure/database/redis"
	litinfra "github.com/turtacn/ChemScribe/internal/infrastructure/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/prometheus"
	miniostore "github.com/turtacn/ChemScribe/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/ChemScribe/internal/interfaces/http"
	"github.com/turtacn/ChemScribe/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	skipMigrations := flag.Bool("skip-migrations", false, "do not run database migrations on startup")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting chemscribe api server",
		logging.Int("port", cfg.Server.Port),
		logging.String("default_provider", cfg.AI.DefaultProvider),
		logging.String("default_source", cfg.Literature.DefaultSource))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL is the system of record for session history and is required.
	if !*skipMigrations && cfg.Database.MigrationPath != "" {
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			logger.Fatal("database migration failed", logging.Err(err))
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database connection failed", logging.Err(err))
	}
	defer pool.Close()
	history := postgres.NewHistoryRepository(pool, cfg.History.MaxEntries, logger)

	// Redis backs the per-session transition lock.  Without it, transitions
	// run unlocked on a single instance.
	var locker redisinfra.SessionLocker
	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, session locking disabled", logging.Err(err))
	} else {
		defer redisClient.Close()
		locker = redisinfra.NewSessionLocker(redisClient, cfg.Redis.LockTTL, logger)
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = kafka.NewProducer(cfg.Kafka, logger)
		defer publisher.Close()
	}

	// MinIO keeps corpus files and assembled documents.  It is optional:
	// without it, the corpus lives on the local filesystem only and document
	// bundles are served from memory.
	var store miniostore.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err = miniostore.NewStore(ctx, cfg.MinIO, logger)
		if err != nil {
			logger.Warn("object storage unavailable, running without it", logging.Err(err))
			store = nil
		}
	}

	providers := ai.NewRegistry(cfg.AI, logger)
	retriever := buildRetriever(cfg, logger)

	renderer := chem.NewRenderer(cfg.Structure.DepictionWidth, cfg.Structure.DepictionHeight)
	validator := chem.NewValidator(renderer, logger)

	var availability workflow.AvailabilityClassifier
	if cfg.Structure.AvailabilityLookup {
		availability = chem.NewAvailabilityScorer(
			cfg.Structure.PubChemURL, cfg.Structure.CactusURL,
			cfg.Structure.LookupTimeout, logger)
	}

	assembler := documents.NewAssembler(store, cfg.MinIO.OutputBucket, logger)
	metrics := prometheus.NewMetrics()

	workflowSvc := workflow.NewService(workflow.Config{
		MaxAttempts:   cfg.Structure.MaxAttempts,
		MaxPapers:     cfg.Literature.MaxPapers,
		DefaultSource: domlit.Source(cfg.Literature.DefaultSource),
		HistoryLimit:  cfg.History.MaxEntries,
	}, workflow.Deps{
		Retriever:    retriever,
		Providers:    providers,
		Validator:    validator,
		Availability: availability,
		Assembler:    assembler,
		Locker:       locker,
		History:      history,
		Publisher:    publisher,
		Metrics:      metrics,
		Logger:       logger,
	})

	corpusSvc := corpus.NewService(store, cfg.MinIO.CorpusBucket,
		cfg.Literature.CorpusDir, cfg.Upload, logger)

	checks := map[string]handlers.ReadinessCheck{
		"postgres": pool.Healthy,
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Research: handlers.NewResearchHandler(workflowSvc, assembler, logger),
		Corpus:   handlers.NewCorpusHandler(corpusSvc, logger),
		Health:   handlers.NewHealthHandler(checks, logger),
		Metrics:  metrics,
		Logger:   logger,
	})
	server := httpserver.NewServer("", cfg.Server.Port, router, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
}

// buildRetriever registers every literature source that can be constructed in
// this environment.
func buildRetriever(cfg *config.Config, logger logging.Logger) *litinfra.Retriever {
	fetchers := []litinfra.Fetcher{
		litinfra.NewSemanticScholarFetcher(cfg.Literature.SemanticScholarURL,
			cfg.Literature.FetchTimeout, logger),
		litinfra.NewArxivFetcher(cfg.Literature.ArxivURL,
			cfg.Literature.FetchTimeout, logger),
	}
	if cfg.Literature.CorpusDir != "" {
		local, err := litinfra.NewLocalCorpusFetcher(cfg.Literature.CorpusDir, logger)
		if err != nil {
			logger.Warn("local corpus source unavailable", logging.Err(err))
		} else {
			fetchers = append(fetchers, local)
		}
	}
	return litinfra.NewRetriever(fetchers...)
}

// loadConfig reads the YAML file when present and falls back to pure
// environment configuration for containerised deployments.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
