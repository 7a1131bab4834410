package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/config"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/run"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/archive"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/assistant/azure"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/assistant/openai"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/database"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/extractor"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/logger"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/metrics"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/observability"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/queue"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/report"
	solicitudrepo "github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/repository/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/webhook"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/worker"
)

// @title RFP Agilismo Backend
// @version 1.0
// @description Receives supplier procurement packages and evaluates them asynchronously with a configured AI assistant.
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	assistantClient := newAssistantClient(cfg)

	excel := extractor.NewExcel()
	fileManager := run.NewFileManager(assistantClient, excel, cfg.IndexSettleWait, log)

	runOpts := run.DefaultOptions()
	runOpts.PollInterval = cfg.RunPollInterval
	runOpts.Timeout = cfg.RunTimeout
	runOpts.RepromptCap = cfg.RunRepromptCap
	orchestrator := run.NewOrchestrator(assistantClient, runOpts, log)

	repository := solicitudrepo.NewPostgresRepository(db)
	taskQueue := queue.NewPostgresQueue(db, log)
	notifier := webhook.NewHTTPService(cfg.WebhookURL, log)

	solicitudService := solicitud.NewService(
		repository,
		fileManager,
		orchestrator,
		archive.NewUnpacker(log),
		excel,
		report.NewPDF(),
		taskQueue,
		notifier,
		solicitud.Options{
			VectorStoreID: cfg.VectorStoreID(),
			MaxAttempts:   cfg.EvalMaxAttempts,
			ScopedPurge:   cfg.FilePurgeScope == config.PurgeScopeRequest,
		},
		log,
	)

	workerPool := worker.NewPool(
		taskQueue,
		solicitudService,
		worker.Config{
			WorkerCount: cfg.BackgroundWorkerCount,
			TaskTimeout: cfg.BackgroundTaskTimeout,
		},
		log,
	)

	if err := workerPool.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start worker pool")
	}
	defer func() {
		log.Info().Msg("stopping worker pool")
		workerPool.Stop()
	}()

	go reportQueueDepth(ctx, workerPool, log)

	httpServer := httpserver.New(cfg, log, solicitudService)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newAssistantClient(cfg *config.Config) run.Client {
	if cfg.AssistantProvider == config.ProviderAzure {
		return azure.NewClient(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureAPIVersion, cfg.AzureAssistantID)
	}
	return openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIAssistantID)
}

func reportQueueDepth(ctx context.Context, pool *worker.Pool, log zerolog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := pool.GetQueueDepth(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("read queue depth")
				continue
			}
			metrics.SetQueueDepth(depth)
		}
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
