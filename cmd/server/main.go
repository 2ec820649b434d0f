package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	orderapp "github.com/netesim/backend/internal/application/order"
	syncapp "github.com/netesim/backend/internal/application/sync"
	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/infrastructure/cache"
	"github.com/netesim/backend/internal/infrastructure/config"
	"github.com/netesim/backend/internal/infrastructure/logger"
	"github.com/netesim/backend/internal/infrastructure/notification"
	"github.com/netesim/backend/internal/infrastructure/persistence"
	"github.com/netesim/backend/internal/infrastructure/scheduler"
	"github.com/netesim/backend/internal/infrastructure/shopify"
	"github.com/netesim/backend/internal/infrastructure/talksim"
	"github.com/netesim/backend/internal/interfaces/http/handler"
	"github.com/netesim/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting eSIM commerce bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)

	// Vendor client
	vendor, err := talksim.NewClient(&talksim.Config{
		BaseURL:  cfg.TalkSim.BaseURL,
		Email:    cfg.TalkSim.Email,
		Password: cfg.TalkSim.Password,
		DealerID: cfg.TalkSim.DealerID,
		TokenTTL: cfg.TalkSim.TokenTTL,
	}, log)
	if err != nil {
		log.Fatal("Failed to create TalkSim client", zap.Error(err))
	}

	// Storefront client
	store, err := shopify.NewClient(&shopify.Config{
		ShopDomain:  cfg.Shopify.ShopDomain,
		AccessToken: cfg.Shopify.AccessToken,
		APIVersion:  cfg.Shopify.APIVersion,
		MinInterval: cfg.Shopify.MinInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to create Shopify client", zap.Error(err))
	}

	// Customer notification
	var notifier fulfillment.Notifier
	if cfg.SMTP.Enabled {
		notifier, err = notification.NewSMTPMailer(cfg.SMTP, log)
		if err != nil {
			log.Fatal("Failed to create SMTP mailer", zap.Error(err))
		}
	} else {
		notifier = notification.NewNopNotifier(log)
	}

	// Webhook delivery dedup
	dedupStore := cache.NewIdempotencyStore(cfg.Redis, log)
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()

	// Application services
	syncService := syncapp.NewService(vendor, store, syncLogRepo, log)
	syncService.SetBatching(cfg.Sync.BatchSize, cfg.Sync.BatchPause)
	orderService := orderapp.NewService(orderRepo, vendor, notifier, log)

	// Periodic sync
	if cfg.Sync.Enabled {
		syncScheduler, err := scheduler.NewCatalogSyncScheduler(scheduler.CatalogSyncSchedulerConfig{
			Interval:   cfg.Sync.Interval,
			RunOnStart: cfg.Sync.RunOnStart,
			RunTimeout: 15 * time.Minute,
		}, syncService, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP server
	engine, err := router.NewEngine(cfg, log)
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	r := router.NewRouter(engine)
	r.RegisterRoot(handler.NewWebhookHandler(orderService, dedupStore, cfg.Shopify.WebhookSecret, log))
	r.RegisterRoot(handler.NewSystemHandler(db, vendor, cfg.App.Name, log))
	r.RegisterAPI(handler.NewSyncHandler(syncService, log))
	r.RegisterAPI(handler.NewOrderHandler(orderService))
	r.Setup(&cfg.HTTP)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
