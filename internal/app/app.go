package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/config"
	"github.com/xavierca1/npi-leads/internal/infra/archive"
	"github.com/xavierca1/npi-leads/internal/infra/database"
	"github.com/xavierca1/npi-leads/internal/infra/http/handlers"
	"github.com/xavierca1/npi-leads/internal/infra/http/middleware"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
	"github.com/xavierca1/npi-leads/internal/infra/mail"
	"github.com/xavierca1/npi-leads/internal/infra/queue"
	"github.com/xavierca1/npi-leads/internal/infra/worker"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

const Version = "1.0.0"

// App holds the wired use cases and the optional integrations. Optional
// fields stay nil when their configuration is absent.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sql.DB

	RabbitMQ  *queue.RabbitMQ
	Publisher queue.SyncJobPublisher
	Reports   queue.ReportSender
	consumer  io.Closer

	Sync      *usecase.SyncProvidersUseCase
	Upload    *usecase.ImportUploadUseCase
	Rows      *usecase.ImportRowsUseCase
	Provision *usecase.ProvisionLeadsUseCase
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	// 1. Database
	db, err := database.NewDBConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, DB: db}

	// 2. Repositories
	providerRepo := database.NewProviderRepository(db)
	progressRepo := database.NewSyncProgressRepository(db)

	// 3. Integrations
	registry := nppes.NewClient(nppes.ClientOptions{
		BaseURL:           cfg.RegistryURL,
		HTTPClient:        &http.Client{Timeout: cfg.RegistryTimeout},
		Logger:            logger,
		RequestsPerSecond: cfg.RegistryRPS,
		Burst:             cfg.RegistryBurst,
		MaxRetries:        cfg.RegistryMaxRetries,
	})

	var archiver usecase.UploadArchiver
	if cfg.S3Bucket != "" {
		store, err := archive.New(ctx, archive.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to configure upload archive: %w", err)
		}
		archiver = store
	}

	if cfg.MailConfigured() {
		a.Reports = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.ReportRecipient)
	}

	if cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.RabbitMQ = mq
		a.Publisher = queue.NewProducer(mq.Ch)
	}

	// 4. Use cases
	metrics := middleware.Recorder{}
	reconciler := usecase.NewReconciler(providerRepo, logger)
	a.Sync = usecase.NewSyncProvidersUseCase(registry, reconciler, progressRepo, metrics, logger)
	a.Upload = usecase.NewImportUploadUseCase(reconciler, archiver, metrics, logger)
	a.Rows = usecase.NewImportRowsUseCase(reconciler, metrics, logger)
	a.Provision = usecase.NewProvisionLeadsUseCase(providerRepo, reconciler, logger)

	return a, nil
}

// Handler builds the HTTP API over the wired use cases.
func (a *App) Handler() http.Handler {
	var mqState handlers.ConnectionState
	if a.RabbitMQ != nil {
		mqState = a.RabbitMQ.Conn
	}
	return NewRouter(RouterDeps{
		Sync:           handlers.NewSyncHandler(a.Sync, a.Publisher, a.Logger),
		Upload:         handlers.NewUploadHandler(a.Upload, a.Rows, a.Logger),
		Providers:      handlers.NewProviderHandler(a.Provision, a.Logger),
		Health:         handlers.NewHealthHandler(a.DB, mqState, a.Config.RegistryURL, Version),
		AllowedOrigins: a.Config.AllowedOrigins,
		SyncRateLimit:  a.Config.SyncRateLimit,
	})
}

// StartWorkers launches the queue consumer and the scheduled sync when they
// are configured. They stop when ctx is cancelled.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.RabbitMQ != nil {
		// a dedicated channel keeps consumer prefetch apart from publishing
		ch, err := a.RabbitMQ.Conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open consumer channel: %w", err)
		}
		a.consumer = ch
		w := queue.NewWorker(ch, a.Sync, a.Publisher, a.Reports, a.Logger)
		w.MaxChain = a.Config.SyncMaxChain
		go func() {
			if err := w.Start(ctx, queue.QueueName); err != nil && ctx.Err() == nil {
				a.Logger.Error("sync job worker stopped", zap.Error(err))
			}
		}()
	}

	if a.Config.ScheduledSyncEnabled && len(a.Config.ScheduledSyncSearches) > 0 {
		var reports worker.ReportSender
		if a.Reports != nil {
			reports = a.Reports
		}
		sw := worker.NewScheduledSyncWorker(a.Sync, reports, a.Config.ScheduledSyncSearches, a.Config.ScheduledSyncInterval, a.Logger)
		go sw.Start(ctx)
	}
	return nil
}

func (a *App) Close() {
	// the consumer channel goes before the connection it was opened on
	if a.consumer != nil {
		_ = a.consumer.Close()
		a.consumer = nil
	}
	if a.RabbitMQ != nil {
		_ = a.RabbitMQ.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
