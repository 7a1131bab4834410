//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/config"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/run"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/archive"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/database"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/extractor"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/logger"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/queue"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/report"
	solicitudrepo "github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/repository/solicitud"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/interfaces/httpserver/handlers"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/webhook"
)

var solicitudSet = wire.NewSet(
	solicitudrepo.NewPostgresRepository,
	wire.Bind(new(solicitud.Repository), new(*solicitudrepo.PostgresRepository)),
	queue.NewPostgresQueue,
	wire.Bind(new(solicitud.Queue), new(*queue.PostgresQueue)),
	extractor.NewExcel,
	wire.Bind(new(document.Extractor), new(*extractor.Excel)),
	archive.NewUnpacker,
	wire.Bind(new(document.Unpacker), new(*archive.Unpacker)),
	report.NewPDF,
	wire.Bind(new(document.Renderer), new(*report.PDF)),
	newAssistantClient,
	newFileManager,
	wire.Bind(new(solicitud.FileManager), new(*run.FileManager)),
	newOrchestrator,
	wire.Bind(new(solicitud.Orchestrator), new(*run.Orchestrator)),
	newWebhookService,
	wire.Bind(new(solicitud.Notifier), new(*webhook.HTTPService)),
	newSolicitudService,
	wire.Bind(new(handlers.SolicitudService), new(*solicitud.Service)),
)

// BuildApplication demonstrates how to assemble the service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		solicitudSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newFileManager(client run.Client, ext document.Extractor, cfg *config.Config, log zerolog.Logger) *run.FileManager {
	return run.NewFileManager(client, ext, cfg.IndexSettleWait, log)
}

func newOrchestrator(client run.Client, cfg *config.Config, log zerolog.Logger) *run.Orchestrator {
	opts := run.DefaultOptions()
	opts.PollInterval = cfg.RunPollInterval
	opts.Timeout = cfg.RunTimeout
	opts.RepromptCap = cfg.RunRepromptCap
	return run.NewOrchestrator(client, opts, log)
}

func newWebhookService(cfg *config.Config, log zerolog.Logger) *webhook.HTTPService {
	return webhook.NewHTTPService(cfg.WebhookURL, log)
}

func newSolicitudService(
	repo solicitud.Repository,
	files solicitud.FileManager,
	orch solicitud.Orchestrator,
	unpacker document.Unpacker,
	ext document.Extractor,
	renderer document.Renderer,
	taskQueue solicitud.Queue,
	notifier solicitud.Notifier,
	cfg *config.Config,
	log zerolog.Logger,
) *solicitud.Service {
	return solicitud.NewService(repo, files, orch, unpacker, ext, renderer, taskQueue, notifier, solicitud.Options{
		VectorStoreID: cfg.VectorStoreID(),
		MaxAttempts:   cfg.EvalMaxAttempts,
		ScopedPurge:   cfg.FilePurgeScope == config.PurgeScopeRequest,
	}, log)
}
