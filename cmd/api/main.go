package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/seat-reservation-engine/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/seat-reservation-engine/internal/adapters/mongo"
	"github.com/robertarktes/seat-reservation-engine/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/seat-reservation-engine/internal/adapters/redis"
	"github.com/robertarktes/seat-reservation-engine/internal/availability"
	"github.com/robertarktes/seat-reservation-engine/internal/booking"
	"github.com/robertarktes/seat-reservation-engine/internal/config"
	httphandler "github.com/robertarktes/seat-reservation-engine/internal/http"
	"github.com/robertarktes/seat-reservation-engine/internal/idempotency"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
	"github.com/robertarktes/seat-reservation-engine/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	ledger := crdb.NewLedger(pool)
	if err := ledger.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure ledger schema: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("booking")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	locks := redisadapter.NewLockStore(redisClient)
	holdStore := redisadapter.NewHoldStore(redisClient)
	cache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	aggregator := availability.NewAggregator(catalog, ledger, locks, cache, cfg.CacheTTL, logger)
	holdMgr := booking.NewHoldManager(locks, holdStore, catalog, aggregator, rabbitPub, audit, logger, cfg.HoldTTL, cfg.MaxSeatsPerHold)
	orderMgr := booking.NewOrderManager(ledger, locks, holdStore, catalog, aggregator, audit, logger, cfg.OrderTTL)

	handlers := httphandler.NewHandlers(cfg, holdMgr, orderMgr, aggregator, catalog, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
