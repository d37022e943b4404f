package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/api/handlers"
	"github.com/devfeed/backend/internal/cache"
	cacheredis "github.com/devfeed/backend/internal/cache/redis"
	"github.com/devfeed/backend/internal/catalog"
	"github.com/devfeed/backend/internal/embedding"
	"github.com/devfeed/backend/internal/evaluation"
	"github.com/devfeed/backend/internal/ingestion"
	"github.com/devfeed/backend/internal/metrics"
	"github.com/devfeed/backend/internal/middleware/ratelimit"
	"github.com/devfeed/backend/internal/middleware/security"
	"github.com/devfeed/backend/internal/middleware/validation"
	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/internal/storage/sqlite"
	techneo4j "github.com/devfeed/backend/internal/techgraph/neo4j"
	"github.com/devfeed/backend/internal/vector/milvus"
	"github.com/devfeed/backend/pkg/config"
	appLogger "github.com/devfeed/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting devfeed recommendation API server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Optional collaborators below. The request path works without any of
	// them, just with fewer candidate sources and no distributed tier.
	var distributed cache.Distributed
	redisClient, err := cacheredis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, running with in-process cache only", zap.Error(err))
	} else {
		distributed = redisClient
		defer redisClient.Close()
	}

	var vectorClient *milvus.Client
	vectorClient, err = milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.APIKey, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim)
	if err != nil {
		appLogger.Warn("Milvus unavailable, vector retrieval disabled", zap.Error(err))
		vectorClient = nil
	} else {
		defer vectorClient.Close()
		if err := vectorClient.CreateCollection(context.Background()); err != nil {
			appLogger.Warn("Failed to prepare vector collection", zap.Error(err))
			vectorClient = nil
		}
	}

	var graphClient *techneo4j.Client
	if cfg.Neo4j.Enabled {
		graphClient, err = techneo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			appLogger.Warn("Neo4j unavailable, technology graph disabled", zap.Error(err))
			graphClient = nil
		} else {
			defer graphClient.Close(context.Background())
		}
	}

	var embedder *embedding.Client
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewClient(
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			time.Duration(cfg.Embedding.TimeoutSec)*time.Second,
		)
	}

	cacheLayer := cache.NewLayer(distributed, cfg.Cache.MemoryTTL, cfg.Cache.DistributedTTL)

	var vectorIndex catalog.VectorIndex
	if vectorClient != nil {
		vectorIndex = vectorClient
	}
	var techGraph catalog.TechGraph
	if graphClient != nil {
		techGraph = graphClient
	}
	contentCatalog := catalog.New(sqliteClient, vectorIndex, techGraph)

	orchestrator := recommend.NewOrchestrator(engineConfig(cfg), recommend.Deps{
		Catalog: contentCatalog,
		Cache:   cacheLayer,
		Metrics: metrics.NewSink(),
	})

	var ingestGraph ingestion.TechGraph
	if graphClient != nil {
		ingestGraph = graphClient
	}
	var ingestEmbedder ingestion.Embedder
	if embedder != nil {
		ingestEmbedder = embedder
	}
	processor := ingestion.NewProcessor(sqliteClient, vectorClient, ingestEmbedder, ingestGraph)

	evaluator := evaluation.NewEvaluator(sqliteClient)
	evalCtx, stopEval := context.WithCancel(context.Background())
	go evaluator.Run(evalCtx, time.Hour)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	var handlerEmbedder handlers.Embedder
	if embedder != nil {
		handlerEmbedder = embedder
	}
	recommendHandler := handlers.NewRecommendHandler(orchestrator, handlerEmbedder, sqliteClient)
	contentHandler := handlers.NewContentHandler(processor)
	statsHandler := handlers.NewStatsHandler(orchestrator)
	wsHandler := handlers.NewWebSocketHandler(orchestrator)

	api := app.Group("/api/v1")

	api.Post("/recommendations", recommendHandler.HandleRecommend)
	api.Get("/recommendations/history", recommendHandler.GetHistory)
	api.Post("/recommendations/feedback", recommendHandler.HandleFeedback)
	api.Delete("/cache/users/:user_id", recommendHandler.HandleInvalidate)

	api.Post("/content", contentHandler.UploadContent)
	api.Get("/stats", statsHandler.GetStats)

	app.Get("/metrics", metrics.MetricsHandler())
	app.Get("/ws/stats", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	stopEval()
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func engineConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		RelevanceThreshold:     cfg.Engine.RelevanceThreshold,
		MaxWorkingSet:          cfg.Engine.MaxWorkingSet,
		MaxRecommendations:     cfg.Engine.MaxRecommendations,
		QualityThreshold:       cfg.Engine.QualityThreshold,
		FastTimeout:            cfg.Engine.FastTimeout,
		ContextTimeout:         cfg.Engine.ContextTimeout,
		EnsembleFastWeight:     cfg.Engine.EnsembleFastWeight,
		EnsembleContextWeight:  cfg.Engine.EnsembleContextWeight,
		MonitorWindow:          cfg.Engine.MonitorWindow,
		ComplexTitleLength:     cfg.Engine.ComplexTitleLength,
		ComplexDescLength:      cfg.Engine.ComplexDescLength,
		ComplexTechCount:       cfg.Engine.ComplexTechCount,
		ComplexInterestsLength: cfg.Engine.ComplexInterestsLength,
	}
}
