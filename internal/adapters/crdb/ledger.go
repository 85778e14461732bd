package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

const (
	SerializationFailureCode = "40001"

	// confirmRetries bounds internal retries of the confirm transaction on
	// serialization failures before the error is surfaced.
	confirmRetries = 3
)

// Ledger is the durable store of orders and the sole source of truth for
// permanently sold seats.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// InsertOrder writes a PAYMENT_PENDING order and its seat rows. The seat rows
// exist so confirmed-seat lookups and the disjointness re-checks stay one
// indexed query instead of an array scan.
func (l *Ledger) InsertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, hold_id, show_id, holder_id, customer_name, customer_email, customer_phone, amount, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.HoldID, order.ShowID, order.HolderID, order.Customer.Name, order.Customer.Email,
		order.Customer.Phone, order.Amount, order.Status, order.CreatedAt, order.ExpiresAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for pos, seat := range order.Seats {
		batch.Queue(`
			INSERT INTO order_seats (order_id, show_id, seat_id, position)
			VALUES ($1, $2, $3, $4)
		`, order.ID, order.ShowID, seat, pos)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// CreateOrder persists a new PAYMENT_PENDING order together with its
// order.created outbox row in one transaction.
func (l *Ledger) CreateOrder(ctx context.Context, order domain.Order) error {
	return l.WithTx(ctx, func(tx pgx.Tx) error {
		if err := l.InsertOrder(ctx, tx, order); err != nil {
			return err
		}
		return l.insertOutboxTx(ctx, tx, order, "order.created")
	})
}

// GetOrder loads an order row with its seats in insertion order.
func (l *Ledger) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := l.pool.QueryRow(ctx, `
		SELECT id, hold_id, show_id, holder_id, customer_name, customer_email, customer_phone,
		       amount, status, COALESCE(ticket_code, ''), created_at, expires_at, confirmed_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&order.ID, &order.HoldID, &order.ShowID, &order.HolderID, &order.Customer.Name,
		&order.Customer.Email, &order.Customer.Phone, &order.Amount, &order.Status, &order.TicketCode,
		&order.CreatedAt, &order.ExpiresAt, &order.ConfirmedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := l.pool.Query(ctx, `
		SELECT seat_id FROM order_seats WHERE order_id = $1 ORDER BY position
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		order.Seats = append(order.Seats, seat)
	}
	return &order, rows.Err()
}

// ConfirmedSeats returns the seats named by CONFIRMED orders of a show.
func (l *Ledger) ConfirmedSeats(ctx context.Context, showID string) ([]string, error) {
	return l.confirmedSeats(ctx, l.pool, showID, uuid.Nil)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (l *Ledger) confirmedSeats(ctx context.Context, q queryer, showID string, excludeOrder uuid.UUID) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT os.seat_id
		FROM order_seats os
		JOIN orders o ON o.id = os.order_id
		WHERE os.show_id = $1 AND o.status = 'CONFIRMED' AND o.id != $2
	`, showID, excludeOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []string
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// ConfirmOrder finalizes a PAYMENT_PENDING order. Inside one SERIALIZABLE
// transaction it re-reads the seats confirmed by other orders of the same
// show; on overlap the order is written FAILED, the transaction commits, and
// the contested seats are returned in a SeatConflictError. Otherwise the
// order becomes CONFIRMED with the given ticket code. Serialization failures
// are retried a bounded number of times.
func (l *Ledger) ConfirmOrder(ctx context.Context, order domain.Order, ticketCode string, confirmedAt time.Time) error {
	var lastErr error
	for attempt := 0; attempt < confirmRetries; attempt++ {
		var conflict *domain.SeatConflictError
		lastErr = l.WithTx(ctx, func(tx pgx.Tx) error {
			taken, err := l.confirmedSeats(ctx, tx, order.ShowID, order.ID)
			if err != nil {
				return err
			}
			takenSet := make(map[string]struct{}, len(taken))
			for _, seat := range taken {
				takenSet[seat] = struct{}{}
			}
			var lost []string
			for _, seat := range order.Seats {
				if _, ok := takenSet[seat]; ok {
					lost = append(lost, seat)
				}
			}
			if len(lost) > 0 {
				_, err := tx.Exec(ctx, `
					UPDATE orders SET status = 'FAILED' WHERE id = $1 AND status = 'PAYMENT_PENDING'
				`, order.ID)
				if err != nil {
					return err
				}
				if err := l.insertOutboxTx(ctx, tx, order, "order.failed"); err != nil {
					return err
				}
				// Returning the conflict here would roll the FAILED write
				// back; the closure must return nil so it commits.
				conflict = domain.NewSeatConflictError(order.ShowID, lost)
				return nil
			}

			result, err := tx.Exec(ctx, `
				UPDATE orders SET status = 'CONFIRMED', ticket_code = $2, confirmed_at = $3
				WHERE id = $1 AND status = 'PAYMENT_PENDING'
			`, order.ID, ticketCode, confirmedAt)
			if err != nil {
				return err
			}
			if result.RowsAffected() == 0 {
				return domain.ErrStateConflict
			}
			return l.insertOutboxTx(ctx, tx, order, "order.confirmed")
		})
		if lastErr == nil {
			if conflict != nil {
				return conflict
			}
			return nil
		}
		if !errors.Is(lastErr, domain.ErrSerializationFailure) {
			return lastErr
		}
	}
	return errors.Mark(lastErr, domain.ErrUnavailable)
}

// MarkOrderStatus transitions an order unconditionally on status match.
func (l *Ledger) MarkOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error {
	result, err := l.pool.Exec(ctx, `
		UPDATE orders SET status = $3 WHERE id = $1 AND status = $2
	`, orderID, from, to)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetExpiredPendingOrders lists PAYMENT_PENDING orders past their expiry, for
// the sweep worker. Reads derive EXPIRED lazily regardless; the sweep only
// settles the stored rows and emits events.
func (l *Ledger) GetExpiredPendingOrders(ctx context.Context, now time.Time, limit int) ([]domain.Order, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, hold_id, show_id, holder_id, status, expires_at
		FROM orders WHERE status = 'PAYMENT_PENDING' AND expires_at <= $1
		ORDER BY expires_at ASC LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.HoldID, &o.ShowID, &o.HolderID, &o.Status, &o.ExpiresAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
