package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// OrderManager owns the order lifecycle: converting a hold into a payable
// order and finalizing it at payment confirmation, re-validating seat
// availability against the ledger at both transitions.
type OrderManager struct {
	ledger   Ledger
	locks    LockStore
	holds    HoldStore
	catalog  Catalog
	avail    Availability
	audit    Auditor
	logger   observability.Logger
	orderTTL time.Duration
}

func NewOrderManager(ledger Ledger, locks LockStore, holds HoldStore, catalog Catalog, avail Availability, audit Auditor, logger observability.Logger, orderTTL time.Duration) *OrderManager {
	return &OrderManager{
		ledger:   ledger,
		locks:    locks,
		holds:    holds,
		catalog:  catalog,
		avail:    avail,
		audit:    audit,
		logger:   logger,
		orderTTL: orderTTL,
	}
}

// CreateOrder converts a HELD hold into a PAYMENT_PENDING order. The ledger's
// confirmed seats are re-read first: a seat could have been confirmed through
// a different hold since this one was created. On conflict the hold is left
// untouched so the caller can retry with different seats. Once the order row
// exists the hold is consumed: its lock is released and it is never restored,
// even if the post-insert cleanup fails, because the order now protects the
// seats.
func (m *OrderManager) CreateOrder(ctx context.Context, holdID, holderID uuid.UUID, customer domain.Customer) (*domain.Order, error) {
	if !customer.Valid() {
		return nil, errors.Wrap(domain.ErrInvalidInput, "customer name, email and phone are required")
	}

	hold, err := m.holds.Get(ctx, holdID.String())
	if err != nil {
		return nil, err
	}
	if hold.HolderID != holderID {
		return nil, domain.ErrNotOwner
	}
	if status := hold.EffectiveStatus(time.Now().UTC()); status != domain.HoldStatusHeld {
		return nil, errors.Wrapf(domain.ErrStateConflict, "hold is %s", status)
	}

	show, err := m.catalog.ShowInfo(ctx, hold.ShowID)
	if err != nil {
		return nil, err
	}

	confirmed, err := m.ledger.ConfirmedSeats(ctx, hold.ShowID)
	if err != nil {
		return nil, err
	}
	if lost := intersect(hold.Seats, confirmed); len(lost) > 0 {
		observability.SeatConflicts.WithLabelValues("order").Inc()
		return nil, domain.NewSeatConflictError(hold.ShowID, lost)
	}

	order := domain.NewOrder(*hold, customer, show.SeatPrice, m.orderTTL)

	if err := withRetry(ctx, func() error {
		createErr := m.ledger.CreateOrder(ctx, order)
		if createErr != nil && !errors.Is(createErr, domain.ErrSerializationFailure) {
			return errors.Mark(createErr, domain.ErrUnavailable)
		}
		return createErr
	}); err != nil {
		// Hold untouched; the caller may retry the same hold.
		return nil, err
	}

	// The hold is consumed from here on; these are cleanups with the seat
	// locks' TTL as the backstop.
	if err := m.locks.Unlock(ctx, hold.ShowID, hold.Seats, holderID.String()); err != nil {
		m.logger.Error("failed to unlock consumed hold", err)
	}
	hold.Status = domain.HoldStatusReleased
	if err := m.holds.Save(ctx, *hold); err != nil {
		m.logger.Error("failed to mark hold consumed", err)
	}

	m.avail.Invalidate(ctx, hold.ShowID)
	if err := m.audit.LogOrder(ctx, "order.created", order); err != nil {
		m.logger.Warn("audit write failed", err)
	}
	return &order, nil
}

// GetOrder returns the order with its status derived as of now; no write
// happens on the read path.
func (m *OrderManager) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := m.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Status = order.EffectiveStatus(time.Now().UTC())
	return order, nil
}

// ConfirmPayment finalizes a PAYMENT_PENDING order. The ledger transaction
// re-validates that no other order confirmed any of these seats meanwhile;
// losing that race writes the order FAILED and reports exactly which seats
// were lost, distinct from any generic payment failure.
func (m *OrderManager) ConfirmPayment(ctx context.Context, orderID, holderID uuid.UUID) (*domain.Order, error) {
	order, err := m.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.HolderID != holderID {
		return nil, domain.ErrNotOwner
	}
	now := time.Now().UTC()
	if status := order.EffectiveStatus(now); status != domain.OrderStatusPaymentPending {
		return nil, errors.Wrapf(domain.ErrStateConflict, "order is %s", status)
	}

	ticketCode := domain.NewTicketCode()
	if err := m.ledger.ConfirmOrder(ctx, *order, ticketCode, now); err != nil {
		if domain.IsSeatConflict(err) {
			observability.OrdersFailed.Inc()
			order.Status = domain.OrderStatusFailed
			if auditErr := m.audit.LogOrder(ctx, "order.failed", *order); auditErr != nil {
				m.logger.Warn("audit write failed", auditErr)
			}
		}
		return nil, err
	}

	order.Status = domain.OrderStatusConfirmed
	order.TicketCode = ticketCode
	order.ConfirmedAt = &now

	observability.OrdersConfirmed.Inc()
	m.avail.Invalidate(ctx, order.ShowID)
	if err := m.audit.LogOrder(ctx, "order.confirmed", *order); err != nil {
		m.logger.Warn("audit write failed", err)
	}
	return order, nil
}
