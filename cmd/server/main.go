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

	"github.com/arnavshah/staff-scheduler-go/pkg/auth"
	"github.com/arnavshah/staff-scheduler-go/pkg/cache"
	"github.com/arnavshah/staff-scheduler-go/pkg/config"
	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"github.com/arnavshah/staff-scheduler-go/pkg/demandfeed"
	"github.com/arnavshah/staff-scheduler-go/pkg/forecast"
	"github.com/arnavshah/staff-scheduler-go/pkg/handlers"
	"github.com/arnavshah/staff-scheduler-go/pkg/jobs"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	db := database.InitDB(cfg)
	if err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Fatal("could not ensure admin user", zap.Error(err))
	}

	ctx := context.Background()

	// Optional forecast cache; forecasts are computed fresh without it.
	var forecastCache forecast.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.ForecastCacheTTL)
		if err != nil {
			logger.Warn("redis unavailable, forecasts will not be cached", zap.Error(err))
		} else {
			defer rc.Close()
			forecastCache = rc
		}
	}

	// Historical demand comes from the order graph when configured, else the demand table.
	var source forecast.HistoricalSource
	if cfg.Neo4jURI != "" {
		graph, err := demandfeed.NewGraphSource(ctx, demandfeed.GraphConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to Neo4j", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := graph.Close(closeCtx); err != nil {
				logger.Warn("error closing Neo4j connection", zap.Error(err))
			}
		}()
		source = graph
	}

	h := handlers.New(db, cfg, source, forecastCache, logger)

	updater := jobs.NewPerformanceUpdater(db, logger)
	if cfg.PerformanceCron != "" {
		if err := updater.Start(cfg.PerformanceCron); err != nil {
			logger.Fatal("invalid PERFORMANCE_CRON", zap.Error(err))
		}
		defer updater.Stop()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(h),
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("database", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("could not run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}
