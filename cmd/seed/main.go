package main

import (
	"log"
	"os"

	"shop-assistant-be/internal/config"
	"shop-assistant-be/pkg/database"
	"shop-assistant-be/pkg/embedding"
)

func main() {
	cfg := config.Load()

	dsn := cfg.Database.Connection
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding Product Catalog...")
	if err := SeedProducts(db); err != nil {
		log.Fatalf("Error: Product seeding failed: %v", err)
	}

	// Embeddings are optional so the seeder works without an AI key.
	if os.Getenv("EMBED_ON_SEED") != "true" {
		log.Println("✅ Seeding completed (embeddings skipped, set EMBED_ON_SEED=true to generate)")
		return
	}

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	log.Println("Generating product embeddings...")
	if err := EmbedProducts(db, provider); err != nil {
		log.Fatalf("Error: Embedding generation failed: %v", err)
	}

	log.Println("✅ Seeding completed with embeddings")
}
