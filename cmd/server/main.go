package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mikeboe/aria-backend/pkg/clients"
	"github.com/mikeboe/aria-backend/pkg/config"
	"github.com/mikeboe/aria-backend/pkg/research"
	"github.com/mikeboe/aria-backend/pkg/search"
	"github.com/mikeboe/aria-backend/pkg/server"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx := context.Background()

	// Storage setup. The file store is always available as fallback; the
	// document and table backends join the write fan-out when configured.
	fileStore, err := storage.NewFileStore(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	var backends []storage.Backend
	if cfg.UseMongoDB {
		mongoStore, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Error("MongoDB unavailable, continuing without it", "error", err)
		} else {
			backends = append(backends, mongoStore)
			defer mongoStore.Close(ctx)
		}
	}
	if cfg.UseDynamoDB {
		dynamoStore, err := storage.NewDynamoStore(ctx, cfg.AWSRegion, storage.DynamoTables{
			Sessions:      cfg.SessionsTable,
			SearchHistory: cfg.SearchTable,
			SavedResearch: cfg.ResearchTable,
		})
		if err != nil {
			logger.Error("DynamoDB unavailable, continuing without it", "error", err)
		} else {
			backends = append(backends, dynamoStore)
		}
	}
	if len(backends) > 0 {
		backends = append(backends, fileStore)
	}

	store := storage.NewManager(fileStore, logger, backends...)
	logger.Info("Storage initialized", "backends", store.Backends())

	llm, err := clients.OpenAI(clients.ModelType(cfg.OpenAIModel), cfg.OpenAIApiKey)
	if err != nil {
		log.Fatalf("Failed to init LLM: %v", err)
	}

	searcher := search.NewClient(cfg.SerpApiKey)

	pipeline := research.NewPipeline(llm, store, searcher, logger)
	pipeline.Scrape = search.ArticleText
	pipeline.CallTimeout = time.Duration(cfg.LLMTimeoutSecs) * time.Second

	handler := server.NewHandler(pipeline, store)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
