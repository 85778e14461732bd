package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// HoldManager owns the hold lifecycle. A hold is a claim, not a commitment:
// it gives one holder exclusive first refusal on seats for a bounded,
// self-expiring window while they fill in payment details.
type HoldManager struct {
	locks    LockStore
	holds    HoldStore
	catalog  Catalog
	avail    Availability
	events   EventPublisher
	audit    Auditor
	logger   observability.Logger
	holdTTL  time.Duration
	maxSeats int
}

func NewHoldManager(locks LockStore, holds HoldStore, catalog Catalog, avail Availability, events EventPublisher, audit Auditor, logger observability.Logger, holdTTL time.Duration, maxSeats int) *HoldManager {
	return &HoldManager{
		locks:    locks,
		holds:    holds,
		catalog:  catalog,
		avail:    avail,
		events:   events,
		audit:    audit,
		logger:   logger,
		holdTTL:  holdTTL,
		maxSeats: maxSeats,
	}
}

func (m *HoldManager) CreateHold(ctx context.Context, showID string, holderID uuid.UUID, seatIDs []string) (*domain.Hold, error) {
	if err := m.validateSeats(seatIDs); err != nil {
		return nil, err
	}

	if _, err := m.catalog.ShowInfo(ctx, showID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrNotFound, "show %s", showID)
		}
		return nil, err
	}

	snap, err := m.avail.Snapshot(ctx, showID)
	if err != nil {
		return nil, err
	}
	if taken := intersect(seatIDs, snap.Unavailable); len(taken) > 0 {
		observability.SeatConflicts.WithLabelValues("hold").Inc()
		return nil, domain.NewSeatConflictError(showID, taken)
	}

	hold := domain.NewHold(showID, holderID, seatIDs, m.holdTTL)

	var conflictSeat string
	err = withRetry(ctx, func() error {
		var tryErr error
		conflictSeat, tryErr = m.locks.TryLock(ctx, showID, seatIDs, holderID.String(), hold.ID.String(), m.holdTTL)
		return tryErr
	})
	if err != nil {
		return nil, err
	}
	if conflictSeat != "" {
		observability.SeatConflicts.WithLabelValues("hold").Inc()
		return nil, domain.NewSeatConflictError(showID, []string{conflictSeat})
	}

	if err := withRetry(ctx, func() error { return m.holds.Save(ctx, hold) }); err != nil {
		// Undo the locks so the failed request leaves availability unchanged.
		if unlockErr := m.locks.Unlock(ctx, showID, seatIDs, holderID.String()); unlockErr != nil {
			m.logger.Error("failed to unlock after hold save failure", unlockErr)
		}
		return nil, err
	}

	observability.HoldsCreated.Inc()
	m.avail.Invalidate(ctx, showID)
	m.emitHold(ctx, "hold.created", hold)
	return &hold, nil
}

// GetHold returns the hold with its status derived as of now. The stored
// record is never mutated by a read.
func (m *HoldManager) GetHold(ctx context.Context, holdID uuid.UUID) (*domain.Hold, error) {
	hold, err := m.holds.Get(ctx, holdID.String())
	if err != nil {
		return nil, err
	}
	hold.Status = hold.EffectiveStatus(time.Now().UTC())
	return hold, nil
}

// ReleaseHold frees a HELD hold's seats. Releasing an expired or already
// released hold is an error, not a no-op.
func (m *HoldManager) ReleaseHold(ctx context.Context, holdID, holderID uuid.UUID) error {
	hold, err := m.holds.Get(ctx, holdID.String())
	if err != nil {
		return err
	}
	if hold.HolderID != holderID {
		return domain.ErrNotOwner
	}
	if status := hold.EffectiveStatus(time.Now().UTC()); status != domain.HoldStatusHeld {
		return errors.Wrapf(domain.ErrStateConflict, "hold is %s", status)
	}

	if err := withRetry(ctx, func() error {
		return m.locks.Unlock(ctx, hold.ShowID, hold.Seats, holderID.String())
	}); err != nil {
		return err
	}

	hold.Status = domain.HoldStatusReleased
	if err := withRetry(ctx, func() error { return m.holds.Save(ctx, *hold) }); err != nil {
		return err
	}

	m.avail.Invalidate(ctx, hold.ShowID)
	m.emitHold(ctx, "hold.released", *hold)
	return nil
}

func (m *HoldManager) validateSeats(seatIDs []string) error {
	if len(seatIDs) == 0 {
		return errors.Wrap(domain.ErrInvalidInput, "seat list is empty")
	}
	if len(seatIDs) > m.maxSeats {
		return errors.Wrapf(domain.ErrInvalidInput, "at most %d seats per hold", m.maxSeats)
	}
	seen := make(map[string]struct{}, len(seatIDs))
	for _, seat := range seatIDs {
		if seat == "" {
			return errors.Wrap(domain.ErrInvalidInput, "empty seat id")
		}
		if _, ok := seen[seat]; ok {
			return errors.Wrapf(domain.ErrInvalidInput, "duplicate seat %s", seat)
		}
		seen[seat] = struct{}{}
	}
	return nil
}

func (m *HoldManager) emitHold(ctx context.Context, action string, hold domain.Hold) {
	if err := m.audit.LogHold(ctx, action, hold); err != nil {
		m.logger.Warn("audit write failed", err)
	}
	payload := map[string]interface{}{
		"hold_id":    hold.ID,
		"show_id":    hold.ShowID,
		"holder_id":  hold.HolderID,
		"seats":      hold.Seats,
		"expires_at": hold.ExpiresAt,
	}
	if err := m.events.PublishJSON(ctx, action, payload); err != nil {
		m.logger.Warn("event publish failed", err)
	}
}
