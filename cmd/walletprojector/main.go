package main

import (
	"context"
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	config "github.com/davicafu/walletflow/internal/config"
	platformEvents "github.com/davicafu/walletflow/internal/platform/events"
	projApp "github.com/davicafu/walletflow/internal/projection/application"
	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
	projEvents "github.com/davicafu/walletflow/internal/projection/infra/inbound/events"
	projHttp "github.com/davicafu/walletflow/internal/projection/infra/inbound/http"
	viewClickhouse "github.com/davicafu/walletflow/internal/projection/infra/outbound/analytics/clickhouse"
	viewCache "github.com/davicafu/walletflow/internal/projection/infra/outbound/cache"
	viewMongo "github.com/davicafu/walletflow/internal/projection/infra/outbound/db/mongodb"
	viewPostgres "github.com/davicafu/walletflow/internal/projection/infra/outbound/db/postgres"
	viewSQLite "github.com/davicafu/walletflow/internal/projection/infra/outbound/db/sqlite"

	"github.com/davicafu/walletflow/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init("walletprojector") // inicializa zap
	log := logger.Logger()
	defer log.Sync()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// ---------------- Read model ----------------
	var views projDomain.ViewRepository

	switch cfg.ViewBackend {
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)

		views, err = viewMongo.NewViewRepoMongoDB(ctx, client, cfg.MongoDatabase)
		if err != nil {
			log.Fatal("failed to initialize MongoDB views", zap.Error(err))
		}
		log.Info("✅ Read model en MongoDB", zap.String("db", cfg.MongoDatabase))

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := viewSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite views", zap.Error(err))
		}
		views = viewSQLite.NewViewRepoSQLite(db)
		log.Info("✅ Read model en SQLite", zap.String("path", cfg.SQLitePath))

	default:
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}
		if err := viewPostgres.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres views", zap.Error(err))
		}
		views = viewPostgres.NewViewRepoPostgres(db)
		log.Info("✅ Read model en Postgres")
	}

	// ---------------- Cache ----------------
	var cacheInstance projDomain.ViewCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = viewCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = viewCache.NewRedisCache(rdb, cfg.CacheTTL)
		defer rdb.Close()
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Analítica ----------------
	var analytics projDomain.ActivityRepository
	if cfg.ClickHouseAddr != "" {
		repo, err := viewClickhouse.NewActivityRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else if err := repo.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de ClickHouse", zap.Error(err))
		} else {
			analytics = repo
			log.Info("✅ ClickHouse conectado, analítica habilitada")
		}
	}

	// ---------------- Projector + consumidor ----------------
	projector := projApp.NewProjector(views, cacheInstance, analytics, cfg.CacheTTL, log)
	consumer := projEvents.NewWalletConsumer(projector, log)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer reader.Close()

	adapter := platformEvents.NewConsumerAdapter(reader, consumer, log)
	adapter.Start(ctx)

	// ---------------- HTTP (read API) ----------------
	viewHandler := projHttp.NewViewHandler(projector)
	router := gin.Default()
	projHttp.RegisterViewRoutes(router, viewHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Wallet projector running",
		zap.String("url", "http://localhost:"+cfg.ProjectorPort),
		zap.String("group", cfg.ConsumerGroup),
	)
	if err := router.Run(":" + cfg.ProjectorPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
