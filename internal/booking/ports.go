package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/availability"
	"github.com/robertarktes/seat-reservation-engine/internal/domain"
)

// LockStore is the shared TTL key-value store holding transient seat
// ownership markers. TryLock is atomic across all requested seats.
type LockStore interface {
	TryLock(ctx context.Context, showID string, seatIDs []string, holderID, holdID string, ttl time.Duration) (conflictSeat string, err error)
	Unlock(ctx context.Context, showID string, seatIDs []string, holderID string) error
}

type HoldStore interface {
	Save(ctx context.Context, hold domain.Hold) error
	Get(ctx context.Context, id string) (*domain.Hold, error)
}

type Catalog interface {
	ShowInfo(ctx context.Context, showID string) (*domain.Show, error)
}

// Ledger is the durable order store; the only source of truth for
// permanently sold seats.
type Ledger interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ConfirmedSeats(ctx context.Context, showID string) ([]string, error)
	ConfirmOrder(ctx context.Context, order domain.Order, ticketCode string, confirmedAt time.Time) error
}

type Availability interface {
	Snapshot(ctx context.Context, showID string) (*availability.Snapshot, error)
	Invalidate(ctx context.Context, showID string)
}

// EventPublisher emits lifecycle events fire-and-forget; emission failures
// never roll back the transition that triggered them.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload interface{}) error
}

// Auditor mirrors lifecycle transitions into the audit trail, best-effort.
type Auditor interface {
	LogHold(ctx context.Context, action string, hold domain.Hold) error
	LogOrder(ctx context.Context, action string, order domain.Order) error
}

const (
	ioRetries    = 3
	ioRetryDelay = 50 * time.Millisecond
)

// withRetry retries transient infrastructure I/O a bounded number of times,
// then surfaces the failure marked as unavailable. Conflicts are never
// retried here; retry-with-different-seats is a caller decision.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < ioRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ioRetryDelay << attempt):
		}
	}
	return errors.Mark(err, domain.ErrUnavailable)
}

func intersect(seats, taken []string) []string {
	set := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range seats {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
