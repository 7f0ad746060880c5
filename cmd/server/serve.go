package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"commission-art-backend/internal/config"
	"commission-art-backend/internal/database"
	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/ratelimit"
	"commission-art-backend/internal/server"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/supabase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		skipMigrations, _ := cmd.Flags().GetBool("skip-migrations")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger, !skipMigrations)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().Bool("skip-migrations", false, "Do not apply migrations on start")
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) error {
	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database client: %w", err)
	}
	defer dbClient.Close()

	if migrate {
		if err := database.NewMigratorForDB(dbClient.DB(), logger).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("migrations completed successfully")
	}

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Supabase client: %w", err)
	}
	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.StorageKey())
	if err != nil {
		return fmt.Errorf("failed to initialize storage client: %w", err)
	}

	realtimeClient := supabase.NewRealtimeClient(logger)
	go func() {
		if err := realtimeClient.ListenPostgres(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("change feed stopped", "error", err)
		}
	}()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	m := metrics.New()
	storage := services.NewStorageService(storageClient, services.Buckets{
		OrderImages:    cfg.OrderImagesBucket,
		FinalWorks:     cfg.FinalWorksBucket,
		GalleryImages:  cfg.GalleryImagesBucket,
		ThumbnailWidth: cfg.ThumbnailWidth,
	}, m, logger)

	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	router := server.NewRouter(cfg, server.Deps{
		Logger:   logger,
		Metrics:  m,
		DB:       dbClient,
		Profiles: dbClient,
		Realtime: realtimeClient,
		Streams:  streams,
		Auth:     services.NewAuthService(supabase.NewAuthClient(supabaseClient), dbClient, logger),
		Orders:   services.NewOrderService(dbClient, storage, m, logger),
		Messages: services.NewMessageService(dbClient, dbClient, storage, limiter, m, logger),
		Gallery:  services.NewGalleryService(dbClient, storage, logger),
	})

	srv := server.NewHTTPServer(":"+cfg.Port, router, stopStreams)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "error", err)
		return srv.Close()
	}
	logger.Info("server stopped")
	return nil
}

// newLimiter shares the chat rate limit through Redis when REDIS_URL is set,
// else keeps it in process.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-process rate limiter")
		return ratelimit.NewMemoryLimiter(ratelimit.MessageWindow), func() {}, nil
	}

	opts, err := backend.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := backend.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at start, limiter will fail open until it answers", "error", err)
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	return ratelimit.NewRedisLimiter(rdb, cfg.RedisPrefix, ratelimit.MessageWindow), closeFn, nil
}
