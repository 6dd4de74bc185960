package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/ddmrp-planner/internal/api"
	"github.com/andresuchdata/ddmrp-planner/internal/cache"
	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
	"github.com/andresuchdata/ddmrp-planner/internal/repository/postgres"
	"github.com/andresuchdata/ddmrp-planner/internal/service"
	"github.com/andresuchdata/ddmrp-planner/internal/source"
	"github.com/andresuchdata/ddmrp-planner/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(os.Stdout, cfg.Server.LogFormat)
	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	src, err := source.New(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("source", cfg.App.Source).Msg("Failed to initialize data source")
	}

	opts := refresherOptions(cfg)
	engine := pipeline.NewEngine(pipeline.FromEngineConfig(cfg.Engine))
	refresher := pipeline.NewRefresher(engine, src, opts.refresher...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := refresher.Warm(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to warm planning snapshot")
	}
	interval := time.Duration(cfg.Engine.RefreshIntervalSeconds) * time.Second
	refresher.Start(ctx, interval)

	planningService := service.NewPlanningService(refresher, opts.pages)
	router := api.NewRouter(&api.Services{PlanningService: planningService}, cfg.Server.AllowedOrigins)

	// Initialize HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("source", cfg.App.Source).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	refresher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if opts.closeFn != nil {
		opts.closeFn()
	}

	logger.Log.Info().Msg("Server exiting")
}

type wiring struct {
	refresher []pipeline.Option
	pages     cache.PageCache
	closeFn   func()
}

// refresherOptions wires the optional redis cache, distributed lock and
// refresh run log. Failures degrade to the in-process defaults.
func refresherOptions(cfg *config.Config) wiring {
	var w wiring
	var closers []func()

	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			w.refresher = append(w.refresher,
				pipeline.WithStore(cache.NewSnapshotCache(client, cfg.Cache)),
				pipeline.WithLocker(cache.NewRefreshLocker(client, cfg.Cache)),
			)
			w.pages = cache.NewPageCache(client, cfg.Cache)
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.App.Source)) {
	case source.KindPostgres, "db", "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Refresh run log disabled")
			break
		}
		w.refresher = append(w.refresher, pipeline.WithRunLog(pipeline.NewRepository(db)))
		closers = append(closers, func() { _ = db.Close() })
	}

	w.closeFn = func() {
		for _, c := range closers {
			c()
		}
	}
	return w
}
