package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"stockd/internal/caching"
	"stockd/internal/config"
	"stockd/internal/handlers"
	"stockd/internal/jobs/background"
	"stockd/internal/middleware"
	"stockd/internal/repositories"
	"stockd/internal/services"
	"stockd/pkg/database"
	"stockd/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DB.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed, caching degraded")
	}
	locker := redislock.New(redisClient)

	storage, err := services.NewStorageService(cfg.Minio.Endpoint, cfg.Minio.AccessKey,
		cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	repos := repositories.NewRepos(pool)
	txRunner := repositories.NewTxRunner(pool)
	cacheService := caching.NewRedisCacheService(redisClient)

	quantityService := services.NewQuantityService(log)
	assignService := services.NewAssignService(txRunner, quantityService, log)
	periodService := services.NewPeriodService(txRunner, repos, quantityService, log)
	moveService := services.NewMoveService(repos, log)
	catalogService := services.NewCatalogService(repos, cacheService, log)
	exportService := services.NewExportService(repos, storage, cfg.Minio.ExportBucket, log)

	moveHandlers := handlers.NewMoveHandlers(moveService, assignService)
	quantityHandlers := handlers.NewQuantityHandlers(quantityService, repos)
	periodHandlers := handlers.NewPeriodHandlers(periodService, exportService)
	locationHandlers := handlers.NewLocationHandlers(catalogService)
	productHandlers := handlers.NewProductHandlers(catalogService)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)

	scheduler, err := background.NewJobScheduler(locker, repos, assignService, cacheService,
		cfg.Jobs.AssignInterval, cfg.Jobs.AssignBatch, cfg.Jobs.CacheWarmCron, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}()

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := e.Group("/v1")
	v1.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWT.Secret)))

	v1.GET("/locations", locationHandlers.ListLocations)
	v1.POST("/locations", locationHandlers.CreateLocation)
	v1.GET("/locations/:id", locationHandlers.GetLocation)
	v1.GET("/locations/:id/subtree", locationHandlers.GetSubtree)
	v1.PUT("/locations/:id", locationHandlers.UpdateLocation)
	v1.DELETE("/locations/:id", locationHandlers.DeleteLocation)

	v1.GET("/products", productHandlers.ListProducts)
	v1.POST("/products", productHandlers.CreateProduct)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.PUT("/products/:id", productHandlers.UpdateProduct)
	v1.DELETE("/products/:id", productHandlers.DeleteProduct)

	v1.GET("/uoms", productHandlers.ListUoms)
	v1.POST("/uoms", productHandlers.CreateUom)

	v1.GET("/moves", moveHandlers.ListMoves)
	v1.POST("/moves", moveHandlers.CreateMove)
	v1.POST("/moves/assign", moveHandlers.AssignMoves)
	v1.GET("/moves/:id", moveHandlers.GetMove)
	v1.PUT("/moves/:id", moveHandlers.UpdateMove)
	v1.DELETE("/moves/:id", moveHandlers.DeleteMove)
	v1.POST("/moves/:id/do", moveHandlers.DoMove)
	v1.POST("/moves/:id/draft", moveHandlers.DraftMove)
	v1.POST("/moves/:id/cancel", moveHandlers.CancelMove)

	v1.GET("/quantities", quantityHandlers.GetQuantities)

	v1.GET("/periods", periodHandlers.ListPeriods)
	v1.POST("/periods", periodHandlers.CreatePeriod)
	v1.POST("/periods/close", periodHandlers.ClosePeriods)
	v1.GET("/periods/:id", periodHandlers.GetPeriod)
	v1.POST("/periods/:id/draft", periodHandlers.DraftPeriod)
	v1.POST("/periods/:id/export", periodHandlers.ExportPeriod)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("starting HTTP server")
		if err := e.Start(cfg.HTTP.Addr()); err != nil {
			log.Info().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
}
