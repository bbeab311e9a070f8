package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/events"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"golang.org/x/text/language"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Server.LogLevel
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: true,
	})

	logger.Info("Starting storefront backend server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations, seeding the default status mappings
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	locale, err := language.Parse(cfg.Catalog.Locale)
	if err != nil {
		logger.Warn("Invalid catalog locale, using English", map[string]interface{}{
			"locale": cfg.Catalog.Locale,
		})
		locale = language.English
	}

	opts := service.Options{
		Timeouts: service.Timeouts{Read: cfg.Timeouts.Read, Write: cfg.Timeouts.Write},
		Locale:   locale,
	}

	// Redis backs the list cache and cross-instance scope locks when configured
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, using in-process locks and no list cache", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			opts.Cache = redis.NewCache(redis.GetClient(), cfg.Redis.CacheTTL)
			opts.Locker = redis.NewLocker(redis.GetClient(), cfg.Redis.LockTTL)
			defer func() {
				if err := redis.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}()
		}
	}

	// Order status events go to Kafka when brokers are configured
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts.Publisher = producer
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("Failed to close Kafka producer", err)
			}
		}()
		logger.Info("Publishing order events to Kafka", map[string]interface{}{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		})
	}

	// Initialize repositories
	repos := service.CatalogRepositories{
		Sections:   repository.NewSectionRepository(db.GetDB()),
		Categories: repository.NewCategoryRepository(db.GetDB()),
		Products:   repository.NewProductRepository(db.GetDB()),
		Variants:   repository.NewVariantRepository(db.GetDB()),
		Images:     repository.NewImageRepository(db.GetDB()),
	}
	orderRepo := repository.NewOrderRepository(db.GetDB())
	mappingRepo := repository.NewStatusMappingRepository(db.GetDB())

	// Initialize services
	skuGuard := service.NewSKUGuard(repos.Products, repos.Variants, opts)
	catalogService := service.NewCatalogService(repos, opts)
	productService := service.NewProductService(repos, skuGuard, opts)
	variantService := service.NewVariantService(repos, skuGuard, opts)
	imageService := service.NewImageService(repos, opts)
	statusMapper := service.NewStatusMapper(mappingRepo, nil, opts)
	fulfillmentService := service.NewFulfillmentService(orderRepo, mappingRepo, statusMapper, opts)

	imageStorage := storage.NewS3Storage(
		context.Background(),
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	sqlDB, err := db.GetDB().DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", err)
	}

	// Initialize controllers
	healthController := controller.NewHealthController(sqlDB)
	catalogController := controller.NewCatalogController(catalogService)
	productController := controller.NewProductController(productService, variantService, imageService)
	orderController := controller.NewOrderController(fulfillmentService)
	uploadController := controller.NewUploadController(imageStorage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		healthController,
		catalogController,
		productController,
		orderController,
		uploadController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
