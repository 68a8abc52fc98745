package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telhawk-systems/segmenter/internal/cache"
	"github.com/telhawk-systems/segmenter/internal/config"
	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/handlers"
	"github.com/telhawk-systems/segmenter/internal/logging"
	natsclient "github.com/telhawk-systems/segmenter/internal/messaging/nats"
	"github.com/telhawk-systems/segmenter/internal/middleware"
	segmentnats "github.com/telhawk-systems/segmenter/internal/nats"
	"github.com/telhawk-systems/segmenter/internal/options"
	"github.com/telhawk-systems/segmenter/internal/repository"
	"github.com/telhawk-systems/segmenter/internal/server"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/translator"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "override listen address")
	migrations := flag.String("migrations", "file://migrations", "migration source URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("segmenter"))
	logging.SetDefault(logger)

	accountID := cfg.Segments.AccountID
	slog.Info("Starting segment service",
		slog.Int("port", cfg.Server.Port),
		logging.AccountID(accountID),
		slog.String("log_level", cfg.Logging.Level),
	)

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	timeFields, unknown := cfg.Mongo.TimeFields()
	if len(unknown) > 0 {
		slog.Error("Unknown time fields in mongo.time_field_paths", slog.Any("fields", unknown))
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	mongoClient, err := store.Connect(startCtx, cfg.Mongo.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", logging.Error(err))
		os.Exit(1)
	}
	mongoStore := store.NewMongoStore(mongoClient, cfg.Mongo, accountID)
	slog.Info("Connected to MongoDB", slog.String("database", cfg.Mongo.Database(accountID)))

	registry := definitions.Default()
	loader := options.NewLoader(mongoStore, registry, accountID)

	if cfg.Redis.Enabled {
		redisClient, err := cache.Connect(startCtx, cfg.Redis.URL)
		if err != nil {
			slog.Warn("Failed to connect to Redis (continuing without option cache)", logging.Error(err))
		} else {
			defer redisClient.Close()
			loader = loader.WithCache(cache.NewOptionsCache(redisClient, cfg.Redis.OptionsTTL(), true))
			slog.Info("Option catalog cache enabled", slog.Duration("ttl", cfg.Redis.OptionsTTL()))
		}
	}

	limits := service.Limits{
		MaxGroups:       cfg.Segments.MaxGroups,
		DefaultPageSize: cfg.Segments.DefaultPageSize,
		MaxPageSize:     cfg.Segments.MaxPageSize,
	}
	svc := service.NewSegmentService(version, accountID, limits, registry,
		translator.NewMongoAdapter(timeFields), mongoStore, loader).
		WithHealthCheck("mongo", mongoStore)

	if cfg.DatabaseURL != "" {
		slog.Info("Running database migrations")
		if err := repository.Migrate(*migrations, cfg.DatabaseURL); err != nil {
			slog.Error("Failed to run migrations", logging.Error(err))
			os.Exit(1)
		}
		repo, err := repository.NewPostgresRepository(startCtx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to Postgres", logging.Error(err))
			os.Exit(1)
		}
		defer repo.Close()
		svc.WithRepository(repo).WithHealthCheck("postgres", repo)
	} else {
		slog.Info("No database_url configured, saved segments are kept in memory")
		svc.WithRepository(repository.NewInMemoryRepository())
	}

	// NATS is optional; the HTTP API works without it.
	var natsHandler *segmentnats.Handler
	var natsClient *natsclient.Client
	if cfg.NATS.Enabled {
		natsClient, err = natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "segmenter",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWaitDuration(),
			Timeout:       5 * time.Second,
		})
		if err != nil {
			slog.Warn("Failed to connect to NATS (continuing without NATS)",
				slog.String("url", cfg.NATS.URL), logging.Error(err))
		} else {
			natsHandler = segmentnats.NewHandler(natsClient, svc, accountID, cfg.Mongo.Timeout())
			if err := natsHandler.Start(context.Background()); err != nil {
				slog.Warn("Failed to start NATS handler", logging.Error(err))
				_ = natsClient.Close()
				natsHandler, natsClient = nil, nil
			} else {
				svc.WithHealthCheck("nats", natsClient)
			}
		}
	} else {
		slog.Info("NATS messaging disabled")
	}

	h := handlers.New(svc)
	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(h, logger.Logger, middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Segment service listening", slog.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutdown signal received")

	if natsHandler != nil {
		if err := natsHandler.Stop(); err != nil {
			slog.Warn("NATS handler shutdown error", logging.Error(err))
		}
		if err := natsClient.Drain(); err != nil {
			slog.Warn("NATS drain error", logging.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", logging.Error(err))
	}
	if err := mongoStore.Close(ctx); err != nil {
		slog.Warn("MongoDB disconnect error", logging.Error(err))
	}
}
