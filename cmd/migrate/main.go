// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/ecanturk/taskforge/internal/config"
	"github.com/ecanturk/taskforge/internal/database"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
)

func main() {
	seed := flag.Bool("seed", false, "create a demo admin and a demo user after migrating")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, sqlDB, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	if *seed {
		users := repository.NewUserRepository(db)
		ctx := context.Background()

		demo := []models.User{
			{Email: "admin@taskforge.local", Username: "admin", Role: models.RoleAdmin, IsActive: true},
			{Email: "user@taskforge.local", Username: "user", Role: models.RoleUser, IsActive: true},
		}
		for i := range demo {
			if err := users.Create(ctx, &demo[i]); err != nil {
				log.Fatalf("Failed to seed user %s: %v", demo[i].Username, err)
			}
			log.Printf("Seeded %s (%s) with ID %s", demo[i].Username, demo[i].Role, demo[i].ID)
		}
	}
}
