// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecanturk/taskforge/internal/authz"
	"github.com/ecanturk/taskforge/internal/cache"
	"github.com/ecanturk/taskforge/internal/config"
	"github.com/ecanturk/taskforge/internal/database"
	"github.com/ecanturk/taskforge/internal/httpapi"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("Connecting to PostgreSQL...")
	db, sqlDB, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		Debug:    cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if cfg.Server.AutoMigrate {
		log.Println("Running auto migration...")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run auto migration: %v", err)
		}
	}

	// Wire services
	listCache := cache.NewMemory(cfg.Cache.TaskListTTL)
	taskService := service.NewTaskService(db, listCache)
	reportService := service.NewReportService(repository.NewReportRepository(sqlDB, "postgres"))
	userRepo := repository.NewUserRepository(db)
	authorizer := authz.NewRoleAuthorizer()

	server := httpapi.NewServer(":"+cfg.Server.HTTPPort, taskService, reportService, userRepo, authorizer)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server shutdown complete")
}
