package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/config"
	"github.com/manishmaharjan/reservation-system/internal/database"
	"github.com/manishmaharjan/reservation-system/internal/handler"
	"github.com/manishmaharjan/reservation-system/internal/logging"
	"github.com/manishmaharjan/reservation-system/internal/middleware"
	"github.com/manishmaharjan/reservation-system/internal/queue"
	"github.com/manishmaharjan/reservation-system/internal/repository"
	"github.com/manishmaharjan/reservation-system/internal/router"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	logger, err := logging.New(cfg.IsProd(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unreachable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb, logger)

	sinks := service.Sinks{purger}
	if cfg.RabbitURL != "" {
		sinks = append(sinks, queue.NewPublisher(cfg.RabbitURL, logger))
	}

	users := service.NewUserService(db, repository.NewUserRepo(db), repository.NewAPIKeyRepo(db, cfg.BcryptCost), logger)
	store := service.NewSQLStore(db)

	e := router.New(logger)
	router.Register(e, router.Deps{
		Users:        handler.NewUserHandler(users, purger, logger),
		Reservations: handler.NewReservationHandler(service.NewReservationService(store, service.RealClock{}, cfg.Location, sinks, logger)),
		Rooms:        handler.NewRoomHandler(service.NewRoomService(store.Rooms), purger, logger),
		Availability: handler.NewAvailabilityHandler(service.NewAvailabilityService(store, cfg.Location)),
		Auth:         users,
		DB:           db,
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:        middleware.NewRedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("timezone", cfg.Timezone))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
