package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fitsearch/internal/config"
	"fitsearch/internal/geo"
	"fitsearch/internal/handler"
	"fitsearch/internal/repository"
	"fitsearch/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("FIT Installation Query Engine")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	// Gazetteer
	var gazetteer *geo.Gazetteer
	if cfg.Engine.GazetteerPath != "" {
		gazetteer, err = geo.LoadFile(cfg.Engine.GazetteerPath)
	} else {
		gazetteer, err = geo.Default()
	}
	if err != nil {
		log.Fatalf("Failed to load gazetteer: %v", err)
	}
	log.Println("✅ Gazetteer loaded")

	// Catalogue
	var catalogue repository.Catalogue
	switch cfg.Catalogue.Backend {
	case "memory":
		repo, err := repository.LoadMemoryRepository(cfg.Catalogue.FixturePath)
		if err != nil {
			log.Fatalf("Failed to load catalogue fixture: %v", err)
		}
		log.Printf("✅ Loaded %d installations from %s", repo.Len(), cfg.Catalogue.FixturePath)
		catalogue = repo
	default:
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		log.Println("✅ Connected to PostgreSQL database")
		catalogue = repo
	}
	defer catalogue.Close()

	// Embedding client
	var embedder service.Embedder
	if cfg.Embedding.Enabled {
		embedder = service.NewEmbeddingClient(&cfg.Embedding)
		log.Printf("✅ Embedding client initialized")
		log.Printf("   - API Base: %s", cfg.Embedding.APIBase)
		log.Printf("   - Model: %s", cfg.Embedding.Model)
		log.Printf("   - Dimensions: %d", cfg.Embedding.Dimensions)
	} else {
		log.Println("⚠️  Embeddings are disabled - similarity ranking falls back to text rank")
		log.Println("   Set OPENAI_API_KEY environment variable to enable it")
	}

	// Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := service.NewSessionStore(service.SessionConfig{
		TTL:           cfg.Session.TTL,
		SweepInterval: cfg.Session.SweepInterval,
	})
	sessions.StartSweeper(ctx)

	engine := service.NewQueryEngine(gazetteer, sessions, service.EngineConfig{
		DefaultTopK:     cfg.Search.DefaultLimit,
		ToleranceKW:     cfg.Engine.ToleranceKW,
		DefaultRadiusKM: cfg.Engine.DefaultRadiusKM,
		Debug:           cfg.Debug(),
	})
	ranker := service.NewRanker(
		cfg.Ranking.WeightText,
		cfg.Ranking.WeightCapacity,
		cfg.Ranking.WeightUrgency,
	)
	searchService := service.NewSearchService(engine, catalogue, ranker, embedder, service.SearchConfig{
		DefaultTopK:   cfg.Search.DefaultLimit,
		MaxTopK:       cfg.Search.MaxLimit,
		MaxExportRows: cfg.Search.MaxExportRows,
	})

	log.Println("✅ Services initialized")
	log.Printf("   - Session TTL: %s", cfg.Session.TTL)
	log.Printf("   - Capacity tolerance: ±%.0f kW", cfg.Engine.ToleranceKW)

	// Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "fit-query-engine",
			"sessions":   sessions.Len(),
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	handler.RegisterRoutes(router, handler.Handlers{
		Query:     handler.NewQueryHandler(engine),
		Search:    handler.NewSearchHandler(searchService, cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		Embedding: handler.NewEmbeddingHandler(searchService, cfg.Embedding.Dimensions),
		Feedback:  handler.NewFeedbackHandler(searchService),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API Documentation: http://localhost:%d/api/v1", cfg.Server.Port)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cancel()
	log.Println("✅ Server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
