package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonearm/labelcore/internal/adapter"
	"github.com/tonearm/labelcore/internal/api"
	"github.com/tonearm/labelcore/internal/config"
	"github.com/tonearm/labelcore/internal/database"
	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/metricsfeed"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/orchestrator"
	appredis "github.com/tonearm/labelcore/internal/redis"
	"github.com/tonearm/labelcore/internal/rules"
	"github.com/tonearm/labelcore/internal/search"
	"github.com/tonearm/labelcore/internal/telemetry"
	"github.com/tonearm/labelcore/internal/worker"
)

const defaultConfigPath = "config.yaml"

// multiSink fans one history write out to every configured sink.
type multiSink []orchestrator.HistorySink

func (s multiSink) RecordResult(ctx context.Context, entry *models.DistributionHistory) error {
	var firstErr error
	for _, sink := range s {
		if err := sink.RecordResult(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func runServe(withWorker bool) {
	configPath := os.Getenv("LABELCORE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres
	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	catalog := database.NewRepository(db)
	rulesRepo := database.NewRulesRepository(db)
	alertsRepo := database.NewAlertsRepository(db)
	historyRepo := database.NewHistoryRepository(db)

	// Redis
	redisClient, err := appredis.NewClient(appredis.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	feed := metricsfeed.NewFeed(redisClient, logg)
	tel := telemetry.NewProvider()

	// Elasticsearch is optional; history search degrades without it
	var indexer *search.Indexer
	if cfg.Elasticsearch.URL != "" {
		esClient, esErr := search.NewClient(ctx, search.ClientConfig{
			URL:      cfg.Elasticsearch.URL,
			Username: cfg.Elasticsearch.Username,
			Password: cfg.Elasticsearch.Password,
			APIKey:   cfg.Elasticsearch.APIKey,
		}, logg)
		if esErr != nil {
			logg.Warn("elasticsearch unavailable, search disabled", logger.Error(esErr))
		} else {
			indexer = search.NewIndexer(esClient, cfg.Elasticsearch.Index, logg)
		}
	}

	// Platform adapters
	registry := adapter.NewRegistry()
	for _, p := range cfg.Platforms {
		if !p.Enabled {
			continue
		}
		registry.Register(p.Key, adapter.NewHTTPAdapter(adapter.HTTPAdapterConfig{
			PlatformKey: p.Key,
			BaseURL:     p.BaseURL,
			APIKey:      p.APIToken,
			Timeout:     p.Timeout,
		}, logg))
	}
	logg.Info("platform adapters registered", logger.Strings("platforms", registry.Keys()))

	// Orchestrator with its sinks
	sinks := multiSink{historyRepo}
	if indexer != nil {
		sinks = append(sinks, indexer)
	}
	orchCfg := orchestrator.DefaultConfig()
	orchCfg.FanOutLimit = cfg.Orchestrator.FanOutLimit
	orchCfg.PublishTimeout = cfg.Orchestrator.PublishTimeout
	orch := orchestrator.New(orchestrator.NewJobStore(), registry, sinks, feed, tel, logg, orchCfg)

	engine := rules.NewEngine(catalog, rulesRepo, logg)

	// Optimizer worker
	var optimizer *worker.OptimizerWorker
	if withWorker && cfg.Worker.Enabled {
		optimizer = worker.NewOptimizerWorker(
			registry, feed, catalog, rulesRepo, alertsRepo, engine,
			worker.OptimizerWorkerConfig{
				PollInterval: cfg.Worker.PollInterval,
				FetchTimeout: cfg.Worker.FetchTimeout,
			},
			tel, logg,
		)
		optimizer.Start(ctx)
	}

	// HTTP API
	router := api.NewRouter(api.Deps{
		Catalog:     catalog,
		Rules:       rulesRepo,
		Alerts:      alertsRepo,
		History:     historyRepo,
		Orch:        orch,
		Engine:      engine,
		Feed:        feed,
		Indexer:     indexer,
		Telemetry:   tel,
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logg,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logg.Info("API server listening", logger.String("address", cfg.Server.Address))
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", serveErr)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.DefaultShutdownTimeoutSeconds*time.Second)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logg.Error("server forced to shutdown", logger.Error(shutdownErr))
	}
	if optimizer != nil {
		optimizer.Stop()
	}
	// Let in-flight fan-outs record their results before exit
	orch.Wait()

	logg.Info("stopped")
}
