package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/orchids/queue-dashboard/internal/config"
	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/internal/engine"
	"github.com/orchids/queue-dashboard/internal/handler"
	"github.com/orchids/queue-dashboard/internal/middleware"
	"github.com/orchids/queue-dashboard/internal/relay"
	"github.com/orchids/queue-dashboard/internal/stats"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Environment, cfg.LogLevel)
	log.Info(context.Background(), "Starting queue dashboard", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	})

	// The engine being unreachable is not fatal: the server degrades to a
	// demo mode where engine-backed endpoints answer with empty results.
	var eng engine.Engine
	client, err := engine.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warn(context.Background(), "Queue engine unreachable, running in demo mode", map[string]interface{}{
			"error": err.Error(),
			"redis": cfg.Redis.Address(),
		})
	} else {
		eng = client
		log.Info(context.Background(), "Queue engine connection established", map[string]interface{}{
			"redis": cfg.Redis.Address(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *relay.Hub
	var clientCount func() int
	if cfg.Features.WebSocket {
		hub = relay.NewHub(log)
		clientCount = hub.ClientCount
	}

	agg := stats.NewAggregator(eng, clientCount, log)

	if hub != nil {
		hub.SetStats(agg)

		var events <-chan domain.Event
		if eng != nil {
			events, err = eng.Subscribe(ctx)
			if err != nil {
				log.Error(ctx, "Failed to subscribe to engine events", err, nil)
			}
		}
		go hub.Run(ctx, events)
	}

	queueHandler := handler.NewQueueHandler(eng, log)
	jobHandler := handler.NewJobHandler(agg, log)
	systemHandler := handler.NewSystemHandler(eng, agg, log)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.Features.RateLimit.Window, cfg.Features.RateLimit.Max))

	if cfg.Features.Authentication {
		log.Warn(context.Background(), "FEATURE_AUTHENTICATION is set but no auth layer is implemented; the flag is inert", nil)
	}

	api := router.Group("/api")
	{
		api.GET("/health", systemHandler.Health)
		api.GET("/system/stats", systemHandler.SystemStats)
		api.GET("/system/workers", systemHandler.ListWorkers)

		api.GET("/queues", queueHandler.ListQueues)
		api.POST("/queues", queueHandler.CreateQueue)
		api.DELETE("/queues/:queueId", queueHandler.DeleteQueue)
		api.POST("/queues/:queueId/pause", queueHandler.PauseQueue)
		api.POST("/queues/:queueId/resume", queueHandler.ResumeQueue)
		api.GET("/queues/:queueId/jobs", queueHandler.ListQueueJobs)
		api.POST("/queues/:queueId/jobs", queueHandler.AddJob)
		api.POST("/queues/:queueId/jobs/:jobId/cancel", queueHandler.CancelJob)

		api.GET("/jobs", jobHandler.ListAllJobs)
		api.GET("/activity/recent", jobHandler.RecentActivity)
	}

	if hub != nil {
		router.GET("/ws", hub.ServeWS)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info(context.Background(), "HTTP server starting", map[string]interface{}{
			"address": cfg.Server.Address(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(context.Background(), "Failed to start server", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(context.Background(), "Shutting down server...", nil)

	// Stop accepting connections first; the engine client closes only after
	// the listener is drained.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(context.Background(), "Server forced to shutdown", err, nil)
	}

	cancel()

	if client != nil {
		if err := client.Close(); err != nil {
			log.Error(context.Background(), "Failed to close engine client", err, nil)
		}
	}

	log.Info(context.Background(), "Server exited gracefully", nil)
}
