package main

import (
	"context"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"sidekick-route-service/internal/adapters/repositories"
	"sidekick-route-service/internal/config"
	"sidekick-route-service/internal/platform/db"
)

// dbtool prepares a Postgres database for the server: the runs table and
// the truck leg cache.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(context.Background(), conn, repositories.Postgres); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}
