package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/robertarktes/seat-reservation-engine/internal/adapters/crdb"
	"github.com/robertarktes/seat-reservation-engine/internal/domain"
)

func startLedger(t *testing.T) *crdb.Ledger {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	ledger := crdb.NewLedger(pool)
	if err := ledger.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return ledger
}

func pendingOrder(showID string, seats []string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:        uuid.New(),
		HoldID:    uuid.New(),
		ShowID:    showID,
		Seats:     seats,
		HolderID:  uuid.New(),
		Customer:  domain.Customer{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+4400000000"},
		Amount:    float64(len(seats)) * 100,
		Status:    domain.OrderStatusPaymentPending,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
}

func TestLedger_CreateAndGetOrder(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	order := pendingOrder("show-1", []string{"A1", "A2"})
	if err := ledger.CreateOrder(ctx, order); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := ledger.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.OrderStatusPaymentPending {
		t.Errorf("expected PAYMENT_PENDING, got %v", fetched.Status)
	}
	if len(fetched.Seats) != 2 || fetched.Seats[0] != "A1" || fetched.Seats[1] != "A2" {
		t.Errorf("expected seats [A1 A2] in order, got %v", fetched.Seats)
	}
	if fetched.Amount != 200 {
		t.Errorf("expected amount 200, got %v", fetched.Amount)
	}
	if fetched.TicketCode != "" || fetched.ConfirmedAt != nil {
		t.Errorf("pending order carries ticket data: %q %v", fetched.TicketCode, fetched.ConfirmedAt)
	}

	// CreateOrder enqueues order.created in the same transaction.
	outbox, err := ledger.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(outbox) != 1 || outbox[0].EventType != "order.created" {
		t.Errorf("expected one order.created outbox row, got %+v", outbox)
	}

	if _, err := ledger.GetOrder(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestLedger_ConfirmOrder(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	order := pendingOrder("show-1", []string{"A1", "A2"})
	if err := ledger.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	confirmedAt := time.Now().UTC()
	if err := ledger.ConfirmOrder(ctx, order, "TKT2345678", confirmedAt); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}

	fetched, err := ledger.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.OrderStatusConfirmed || fetched.TicketCode != "TKT2345678" {
		t.Errorf("expected CONFIRMED with ticket code, got %v %q", fetched.Status, fetched.TicketCode)
	}
	if fetched.ConfirmedAt == nil {
		t.Error("expected confirmed_at set")
	}

	seats, err := ledger.ConfirmedSeats(ctx, "show-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(seats) != 2 {
		t.Errorf("expected 2 confirmed seats, got %v", seats)
	}

	// Confirming twice finds no PAYMENT_PENDING row.
	if err := ledger.ConfirmOrder(ctx, order, "TKT9999999", confirmedAt); !errors.Is(err, domain.ErrStateConflict) {
		t.Errorf("expected ErrStateConflict on re-confirm, got %v", err)
	}
}

func TestLedger_ConfirmOrderSeatConflict(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	winner := pendingOrder("show-1", []string{"A1", "A2"})
	loser := pendingOrder("show-1", []string{"A2", "A3"})
	for _, o := range []domain.Order{winner, loser} {
		if err := ledger.CreateOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	if err := ledger.ConfirmOrder(ctx, winner, "TKTWINNER1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	err := ledger.ConfirmOrder(ctx, loser, "TKTLOSER22", time.Now().UTC())
	var conflict *domain.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != "A2" {
		t.Errorf("expected conflict on A2, got %v", conflict.Seats)
	}

	// The losing order is settled FAILED, not left pending.
	fetched, err := ledger.GetOrder(ctx, loser.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.OrderStatusFailed {
		t.Errorf("expected FAILED, got %v", fetched.Status)
	}
	if fetched.TicketCode != "" {
		t.Errorf("failed order must not carry a ticket code, got %q", fetched.TicketCode)
	}

	// The failure event was written in the same transaction as the FAILED
	// transition and survived it.
	outbox, err := ledger.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	var failedEvent bool
	for _, rec := range outbox {
		if rec.EventType == "order.failed" && rec.AggregateID == loser.ID {
			failedEvent = true
		}
	}
	if !failedEvent {
		t.Error("expected an order.failed outbox row for the losing order")
	}

	// A3 was never confirmed by anyone.
	seats, err := ledger.ConfirmedSeats(ctx, "show-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, seat := range seats {
		if seat == "A3" {
			t.Error("A3 confirmed by a failed order")
		}
	}
}

func TestLedger_MarkOrderStatus(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	order := pendingOrder("show-1", []string{"A1"})
	if err := ledger.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	if err := ledger.MarkOrderStatus(ctx, order.ID, domain.OrderStatusPaymentPending, domain.OrderStatusExpired); err != nil {
		t.Fatalf("expected transition to succeed, got %v", err)
	}

	// Status precondition no longer matches.
	err := ledger.MarkOrderStatus(ctx, order.ID, domain.OrderStatusPaymentPending, domain.OrderStatusExpired)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on stale transition, got %v", err)
	}
}

func TestLedger_GetExpiredPendingOrders(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	stale := pendingOrder("show-1", []string{"A1"})
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	fresh := pendingOrder("show-1", []string{"A2"})
	for _, o := range []domain.Order{stale, fresh} {
		if err := ledger.CreateOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	expired, err := ledger.GetExpiredPendingOrders(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Errorf("expected only the stale order, got %+v", expired)
	}
}

func TestLedger_OutboxPublishCycle(t *testing.T) {
	ledger := startLedger(t)
	ctx := context.Background()

	order := pendingOrder("show-1", []string{"A1"})
	if err := ledger.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	records, err := ledger.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 unpublished record, got %d", len(records))
	}

	rec := records[0]
	if err := ledger.MarkPublished(ctx, rec.ID, time.Now().UTC(), rec.DedupeKey); err != nil {
		t.Fatal(err)
	}

	records, err = ledger.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected outbox drained, got %d records", len(records))
	}
}
