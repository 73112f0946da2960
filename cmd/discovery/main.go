package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	dynamoadapter "github.com/matjip-map/discovery-service/internal/adapter/dynamodb"
	httpadapter "github.com/matjip-map/discovery-service/internal/adapter/http"
	kafkaadapter "github.com/matjip-map/discovery-service/internal/adapter/kafka"
	"github.com/matjip-map/discovery-service/internal/adapter/mapbox"
	"github.com/matjip-map/discovery-service/internal/adapter/postgres"
	"github.com/matjip-map/discovery-service/internal/adapter/sqlite"
	"github.com/matjip-map/discovery-service/internal/config"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
	"github.com/matjip-map/discovery-service/internal/regions"
	"github.com/matjip-map/discovery-service/internal/search"
	"github.com/matjip-map/discovery-service/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openDataset(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open dataset", "driver", cfg.DatasetDriver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	sessions, err := openSessionStore(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open session store", "store", cfg.SessionStore, "error", err)
		os.Exit(1)
	}

	var publisher domain.LocationPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("location events enabled", "topic", cfg.KafkaLocationTopic, "brokers", cfg.KafkaBrokers)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheTTL, metrics)
		logger.Info("mapbox geocoding enabled", "cache_ttl", cfg.MapboxCacheTTL, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	table := regions.Default()
	if cfg.RegionsPath != "" {
		table, err = regions.Load(cfg.RegionsPath)
		if err != nil {
			logger.Error("failed to load regions", "path", cfg.RegionsPath, "error", err)
			os.Exit(1)
		}
	}
	live := regions.NewLive(table, logger)
	if cfg.RegionsPath != "" && cfg.RegionsWatch {
		go func() {
			if err := live.Watch(ctx, cfg.RegionsPath); err != nil {
				logger.Error("regions watcher stopped", "error", err)
			}
		}()
	}

	svc := search.New(repo, sessions, publisher, nil, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Search:   svc,
		Ready:    svc,
		Regions:  live,
		Geocoder: geocoder,
	}, metrics, logger)

	// Start HTTP server.
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func openDataset(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.POIRepository, func(), error) {
	switch cfg.DatasetDriver {
	case config.DriverPostgres:
		repo, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("sqlite close error", "error", err)
			}
		}, nil
	}
}

func openSessionStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.SessionStore, error) {
	if cfg.SessionStore != config.SessionStoreDynamoDB {
		return session.NewStore(nil, metrics), nil
	}
	client, err := dynamoadapter.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("dynamodb session store enabled", "table", cfg.DynamoDBTable)
	return dynamoadapter.NewSessionStore(client, cfg.DynamoDBTable, nil, logger), nil
}
