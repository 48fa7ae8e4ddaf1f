package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/config"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/handlers"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
	"github.com/JacobArthurs/ecommerce-api/pkg/server"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting ecommerce API",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	// Setup database
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)

	if err := db.AutoMigrate(
		&models.Group{},
		&models.User{},
		&models.Product{},
		&models.Tag{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Repositories
	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	tags := repository.NewTagRepository(db)
	reviews := repository.NewReviewRepository(db)
	orders := repository.NewOrderRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureGroups(ctx); err != nil {
		cancel()
		logger.Fatal("Failed to seed groups", zap.Error(err))
	}
	cancel()

	// Redis user cache; a dead cache degrades to DB lookups.
	cache := repository.NewUserCache(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		logger.Warn("Failed to connect to Redis, continuing without user cache", zap.Error(err))
		cache = nil
	}
	pingCancel()

	// MongoDB audit trail, also optional.
	audit, err := repository.NewAuditLogger(&cfg.MongoDB, cfg.Server.Name, logger)
	if err != nil {
		logger.Warn("Failed to connect to MongoDB, continuing without audit trail", zap.Error(err))
		audit = nil
	}

	// Wire the operation surface
	tokens := auth.NewTokenManager(&cfg.JWT)
	dispatcher := graph.NewDispatcher(logger)
	handlers.NewProductHandler(products, audit, logger).Register(dispatcher)
	handlers.NewTagHandler(tags, products, audit, logger).Register(dispatcher)
	handlers.NewReviewHandler(reviews, products, audit, logger).Register(dispatcher)
	handlers.NewOrderHandler(orders, products, audit, logger).Register(dispatcher)
	handlers.NewUserHandler(users, cache, audit, logger).Register(dispatcher)
	handlers.NewAuthHandler(users, cache, tokens, logger).Register(dispatcher)

	srv := server.NewServer(cfg, dispatcher, tokens, logger)

	// Start server in goroutine
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			srvErr <- err
		}
	}()

	logger.Info("Server started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-srvErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	if cache != nil {
		cache.Close()
	}
	if audit != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		audit.Close(closeCtx)
		closeCancel()
	}

	logger.Info("Server stopped")
}
