// Command seed creates the default rooms and an admin user, and prints the
// admin API key once.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/config"
	"github.com/manishmaharjan/reservation-system/internal/database"
	"github.com/manishmaharjan/reservation-system/internal/logging"
	"github.com/manishmaharjan/reservation-system/internal/repository"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

var defaultRooms = []service.RoomInput{
	{Name: "Room 1", Capacity: 10},
	{Name: "Room 2", Capacity: 20},
}

func main() {
	_ = godotenv.Load()
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rooms := service.NewRoomService(repository.NewRoomRepo(db))
	for _, in := range defaultRooms {
		rm, err := rooms.Create(ctx, in)
		switch {
		case service.KindOf(err) == service.Conflict:
			logger.Info("room exists", zap.String("room", in.Name))
		case err != nil:
			logger.Fatal("create room", zap.String("room", in.Name), zap.Error(err))
		default:
			logger.Info("room created", zap.Uint64("id", rm.ID), zap.String("room", rm.Name))
		}
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	users := service.NewUserService(db, repository.NewUserRepo(db), repository.NewAPIKeyRepo(db, cfg.BcryptCost), logger)
	reg, err := users.Register(ctx, username, email, true)
	if service.KindOf(err) == service.Conflict {
		logger.Info("admin user exists; no new key issued", zap.String("username", username))
		return
	}
	if err != nil {
		logger.Fatal("create admin", zap.Error(err))
	}
	fmt.Printf("admin user_id=%d api_key=%s\n", reg.User.ID, reg.APIKey)
}
