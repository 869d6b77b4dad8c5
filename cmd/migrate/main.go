package main

import (
	"log"
	"os"

	"pdf-qa-be/internal/model"
	"pdf-qa-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Extensions + tables. document_chunks is only queried by the pgvector index backend.
	log.Println("Running AutoMigrate for documents and document_chunks...")
	if err := database.Migrate(db, true, &model.Document{}, &model.DocumentChunk{}); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("✅ Migration completed")
}
