// Package server initializes and runs the application: database and
// migrations, object storage, the transcription pipeline, the public HTTP
// API, the metrics listener and the optional Kafka consumer.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dverbin/audiochat/internal/logging"
	"github.com/dverbin/audiochat/internal/server/billing"
	"github.com/dverbin/audiochat/internal/server/config"
	"github.com/dverbin/audiochat/internal/server/events"
	"github.com/dverbin/audiochat/internal/server/httpapi"
	"github.com/dverbin/audiochat/internal/server/observability"
	"github.com/dverbin/audiochat/internal/server/pipeline"
	"github.com/dverbin/audiochat/internal/server/probe"
	"github.com/dverbin/audiochat/internal/server/repositories/repomanager"
	"github.com/dverbin/audiochat/internal/server/services"
	"github.com/dverbin/audiochat/internal/server/storage"
	"github.com/dverbin/audiochat/internal/server/transcribe"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	workflow *pipeline.Workflow
	router   http.Handler
	consumer *events.Consumer
	egress   *events.Publisher
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	objectStore := storage.NewStore(cfg)
	prober := probe.NewFFProbe(nil, cfg.ProbeTimeout)
	transcriber := transcribe.NewAssemblyAI(cfg.TranscriberAPIKey, cfg.TranscriberEndpoint,
		cfg.TranscribePollInterval, cfg.TranscribePollTimeout)
	plans := billing.NewService(repos.Users(db))

	egress := events.NewPublisher(events.PublisherConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTranscriptsTopic,
		Enabled: cfg.KafkaEnabled,
	}, metrics, logger)

	workflow := pipeline.NewWorkflow(
		pipeline.NewPostgresStore(db, repos),
		prober, transcriber, plans, egress, metrics, logger)

	userService := services.NewUserService(db, repos, cfg)
	fileService := services.NewFileService(db, repos, objectStore)

	handler := httpapi.NewHandler(userService, fileService, workflow,
		[]byte(cfg.SecretKey), logger)

	app := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		workflow: workflow,
		router:   httpapi.NewRouter(handler),
		egress:   egress,
	}

	if cfg.KafkaEnabled {
		app.consumer = events.NewConsumer(events.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   cfg.KafkaUploadsTopic,
		}, workflow, logger)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...",
		"http", app.config.EndpointAddrHTTP, "metrics", app.config.MetricsAddr)

	app.initSignalHandler(cancelFunc)

	apiServer := &http.Server{Addr: app.config.EndpointAddrHTTP, Handler: app.router}
	metricsServer := observability.NewServer(app.config.MetricsAddr, app.registry)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "api server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "metrics server error", "error", err)
			cancelFunc()
		}
	}()

	if app.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.consumer.Run(ctx); err != nil {
				app.logger.Error(ctx, "kafka consumer error", "error", err)
				cancelFunc()
			}
		}()
	}

	<-ctx.Done()
	app.logger.Info(ctx, "shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "api shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "metrics shutdown error", "error", err)
	}
	if app.consumer != nil {
		if err := app.consumer.Close(); err != nil {
			app.logger.Error(shutdownCtx, "consumer close error", "error", err)
		}
	}

	// let in-flight pipeline runs reach a terminal status
	app.workflow.Wait()

	if err := app.egress.Close(); err != nil {
		app.logger.Error(shutdownCtx, "publisher close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close error", "error", err)
	}

	wg.Wait()
	app.logger.Info(shutdownCtx, "app stopped")
}
