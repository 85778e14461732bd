package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/seat-reservation-engine/internal/adapters/crdb"
	"github.com/robertarktes/seat-reservation-engine/internal/adapters/rabbit"
	"github.com/robertarktes/seat-reservation-engine/internal/config"
	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// The expiry worker settles PAYMENT_PENDING orders past their expiry into
// stored EXPIRED rows and emits order.expired. Readers derive EXPIRED lazily
// regardless; this sweep only keeps the ledger tidy and the event stream
// complete.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	ledger := crdb.NewLedger(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(ledger, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

type ExpiryWorker struct {
	ledger    *crdb.Ledger
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewExpiryWorker(ledger *crdb.Ledger, rabbitPub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{ledger: ledger, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(ctx, now.UTC())
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context, now time.Time) {
	orders, err := w.ledger.GetExpiredPendingOrders(ctx, now, 100)
	if err != nil {
		w.logger.Error("failed to get expired orders", err)
		return
	}
	for _, order := range orders {
		if err := w.ledger.MarkOrderStatus(ctx, order.ID, domain.OrderStatusPaymentPending, domain.OrderStatusExpired); err != nil {
			// Lost to a concurrent confirmation or another sweeper instance.
			w.logger.Warn("skipping order", order.ID.String(), err)
			continue
		}
		payload := map[string]interface{}{
			"order_id": order.ID,
			"show_id":  order.ShowID,
		}
		if err := w.rabbitPub.PublishJSON(ctx, "order.expired", payload); err != nil {
			w.logger.Error("failed to publish order.expired", err)
		}
	}
}
