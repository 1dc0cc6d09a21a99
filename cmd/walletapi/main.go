package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	config "github.com/davicafu/walletflow/internal/config"
	platformBus "github.com/davicafu/walletflow/internal/platform/bus"
	platformEvents "github.com/davicafu/walletflow/internal/platform/events"
	projApp "github.com/davicafu/walletflow/internal/projection/application"
	projEvents "github.com/davicafu/walletflow/internal/projection/infra/inbound/events"
	viewCache "github.com/davicafu/walletflow/internal/projection/infra/outbound/cache"
	viewSQLite "github.com/davicafu/walletflow/internal/projection/infra/outbound/db/sqlite"
	walletApp "github.com/davicafu/walletflow/internal/wallet/application"
	walletHttp "github.com/davicafu/walletflow/internal/wallet/infra/inbound/http"
	storePostgres "github.com/davicafu/walletflow/internal/wallet/infra/outbound/db/postgres"
	storeSQLite "github.com/davicafu/walletflow/internal/wallet/infra/outbound/db/sqlite"

	"github.com/davicafu/walletflow/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init("walletapi") // inicializa zap
	log := logger.Logger()   // obtiene logger estructurado
	defer log.Sync()         // flush buffers al salir

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// ---------------- Event log ----------------
	var service *walletApp.WalletService
	var publisher platformBus.EventPublisher

	if cfg.LocalDeployment {
		log.Info("⚡️ Despliegue local: SQLite + bus de eventos en memoria")

		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := storeSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite event log", zap.Error(err))
		}
		if err := viewSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite views", zap.Error(err))
		}

		inMemoryBus := platformEvents.NewInMemoryEventBus(cfg.KafkaTopic)
		publisher = inMemoryBus

		// En local el projector corre dentro del mismo proceso,
		// suscrito al bus en memoria.
		cache := viewCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		projector := projApp.NewProjector(viewSQLite.NewViewRepoSQLite(db), cache, nil, cfg.CacheTTL, log)
		consumer := projEvents.NewWalletConsumer(projector, log)

		log.Info("🎧 Iniciando listener en memoria para eventos de wallet")
		platformEvents.BackgroundConsumerChan(ctx, inMemoryBus.Subscribe(10), consumer)

		service = walletApp.NewWalletService(storeSQLite.NewEventStoreSQLite(db), publisher, log)
	} else {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}

		if err := storePostgres.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres event log", zap.Error(err))
		}

		log.Info("🚀 Usando Kafka como bus de eventos",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)

		writer := platformEvents.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()

		publisher = platformEvents.NewKafkaPublisher(writer, log)
		service = walletApp.NewWalletService(storePostgres.NewEventStorePostgres(db), publisher, log)
	}

	// ---------------- HTTP ----------------
	walletHandler := walletHttp.NewWalletHandler(service)
	router := gin.Default()
	router.Use(timeoutMiddleware(cfg.HandlerTimeout))
	walletHttp.RegisterWalletRoutes(router, walletHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Wallet API running",
		zap.String("url", "http://localhost:"+cfg.APIPort),
	)
	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// timeoutMiddleware acota cada invocación del handler: un storage o un broker
// colgado hace fallar el command en vez de dejarlo esperando indefinidamente.
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
