package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forkfeed/backend/config"
	"github.com/forkfeed/backend/internal/api"
	"github.com/forkfeed/backend/internal/database"
	"github.com/forkfeed/backend/internal/router"
	"github.com/forkfeed/backend/internal/server"
	"github.com/forkfeed/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		// Without Redis, logout falls back to token expiry.
		log.Printf("Redis unavailable, token revocation disabled: %v", err)
		redisClient = nil
	}

	s3Config, err := config.NewS3Config(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize S3: %v", err)
	}

	authService := service.NewAuthService(db, redisClient, cfg.JWTSecret)
	imageService := service.NewImageService(cfg.MediaDir, s3Config)
	recipeService := service.NewRecipeService(db, imageService)
	followService := service.NewFollowService(db)
	shoppingListService := service.NewShoppingListService(db)
	catalogService := service.NewCatalogService(db)

	handlers := router.Handlers{
		Auth:    api.NewAuthHandler(authService, followService),
		Recipe:  api.NewRecipeHandler(recipeService, shoppingListService),
		Catalog: api.NewCatalogHandler(catalogService),
		Follow:  api.NewFollowHandler(followService),
	}

	engine := router.SetupRouter(handlers, authService)
	srv := server.New(engine, net.JoinHostPort(cfg.ServerHost, cfg.ServerPort))

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s:%s", cfg.ServerHost, cfg.ServerPort)
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
