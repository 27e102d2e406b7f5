package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/suar-net/suar-probe/internal/config"
	"github.com/suar-net/suar-probe/internal/database"
	"github.com/suar-net/suar-probe/internal/handler"
	"github.com/suar-net/suar-probe/internal/logging"
	"github.com/suar-net/suar-probe/internal/service"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables from OS")
	}
	logger.Info("configuration loaded", slog.Any("config", cfg))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	repo, err := database.Open(startupCtx, cfg.DB, logger)
	cancelStartup()
	if err != nil {
		logger.Error("failed to open request log store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()

	executor := service.NewExecutor(service.ExecutorConfig{
		DefaultTimeout:       cfg.Probe.DefaultTimeout,
		MaxTimeout:           cfg.Probe.MaxTimeout,
		MaxResponseBodySize:  cfg.Probe.MaxResponseBodySize,
		BlockPrivateNetworks: cfg.Probe.BlockPrivateNetworks,
		FollowRedirects:      cfg.Probe.FollowRedirects,
	})
	emitter := service.NewLogEmitter(repo.RequestLogs(), logger)

	router := handler.SetupRouter(handler.RouterDeps{
		Probe:          service.NewProbeService(executor, emitter, logger),
		Analytics:      service.NewAnalyticsService(repo, service.AnalyticsConfig{Location: cfg.Analytics.Location}),
		Subscriptions:  service.NewSubscriptionService(repo.Subscriptions()),
		Store:          repo,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-serverErr:
		logger.Error("cannot run server", slog.String("port", cfg.Server.Port), slog.String("error", err.Error()))
		return
	}

	logger.Info("shutting down the server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("server successfully shut down")
}
