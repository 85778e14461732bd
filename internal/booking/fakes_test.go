package booking_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

type nopLogger struct{}

func (nopLogger) Info(args ...interface{})  {}
func (nopLogger) Error(args ...interface{}) {}
func (nopLogger) Debug(args ...interface{}) {}
func (nopLogger) Warn(args ...interface{})  {}
func (l nopLogger) WithField(key string, value interface{}) observability.Logger {
	return l
}

type lockEntry struct {
	holderID  string
	holdID    string
	expiresAt time.Time
}

// fakeLockStore mirrors the Redis script semantics: check every seat, then
// set every seat, under one mutex acquisition.
type fakeLockStore struct {
	mu    sync.Mutex
	locks map[string]map[string]lockEntry // showID -> seatID -> entry
	now   func() time.Time

	tryLockErr error
	unlockErr  error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{
		locks: make(map[string]map[string]lockEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *fakeLockStore) TryLock(ctx context.Context, showID string, seatIDs []string, holderID, holdID string, ttl time.Duration) (string, error) {
	if s.tryLockErr != nil {
		return "", s.tryLockErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	show := s.locks[showID]
	for _, seat := range seatIDs {
		if entry, ok := show[seat]; ok && entry.expiresAt.After(now) && entry.holderID != holderID {
			return seat, nil
		}
	}
	if show == nil {
		show = make(map[string]lockEntry)
		s.locks[showID] = show
	}
	for _, seat := range seatIDs {
		show[seat] = lockEntry{holderID: holderID, holdID: holdID, expiresAt: now.Add(ttl)}
	}
	return "", nil
}

func (s *fakeLockStore) Unlock(ctx context.Context, showID string, seatIDs []string, holderID string) error {
	if s.unlockErr != nil {
		return s.unlockErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seat := range seatIDs {
		if entry, ok := s.locks[showID][seat]; ok && entry.holderID == holderID {
			delete(s.locks[showID], seat)
		}
	}
	return nil
}

func (s *fakeLockStore) ListLocked(ctx context.Context, showID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var seats []string
	for seat, entry := range s.locks[showID] {
		if entry.expiresAt.After(now) {
			seats = append(seats, seat)
		}
	}
	return seats, nil
}

type fakeHoldStore struct {
	mu    sync.Mutex
	holds map[string]domain.Hold

	saveErr error
}

func newFakeHoldStore() *fakeHoldStore {
	return &fakeHoldStore{holds: make(map[string]domain.Hold)}
}

func (s *fakeHoldStore) Save(ctx context.Context, hold domain.Hold) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.ID.String()] = hold
	return nil
}

func (s *fakeHoldStore) Get(ctx context.Context, id string) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := hold
	return &copied, nil
}

type fakeCatalog struct {
	shows   map[string]domain.Show
	blocked map[string][]string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{shows: make(map[string]domain.Show), blocked: make(map[string][]string)}
}

func (c *fakeCatalog) ShowInfo(ctx context.Context, showID string) (*domain.Show, error) {
	show, ok := c.shows[showID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &show, nil
}

func (c *fakeCatalog) BlockedSeats(ctx context.Context, showID string) ([]string, error) {
	if _, ok := c.shows[showID]; !ok {
		return nil, domain.ErrNotFound
	}
	return c.blocked[showID], nil
}

// fakeLedger keeps orders in memory and reproduces the confirm transaction's
// re-check semantics.
type fakeLedger struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order

	createErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{orders: make(map[uuid.UUID]domain.Order)}
}

func (l *fakeLedger) CreateOrder(ctx context.Context, order domain.Order) error {
	if l.createErr != nil {
		return l.createErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[order.ID] = order
	return nil
}

func (l *fakeLedger) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (l *fakeLedger) ConfirmedSeats(ctx context.Context, showID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confirmedSeatsLocked(showID, uuid.Nil), nil
}

func (l *fakeLedger) confirmedSeatsLocked(showID string, exclude uuid.UUID) []string {
	var seats []string
	for _, order := range l.orders {
		if order.ShowID == showID && order.Status == domain.OrderStatusConfirmed && order.ID != exclude {
			seats = append(seats, order.Seats...)
		}
	}
	return seats
}

func (l *fakeLedger) ConfirmOrder(ctx context.Context, order domain.Order, ticketCode string, confirmedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, ok := l.orders[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	taken := make(map[string]struct{})
	for _, seat := range l.confirmedSeatsLocked(order.ShowID, order.ID) {
		taken[seat] = struct{}{}
	}
	var lost []string
	for _, seat := range order.Seats {
		if _, ok := taken[seat]; ok {
			lost = append(lost, seat)
		}
	}
	if len(lost) > 0 {
		stored.Status = domain.OrderStatusFailed
		l.orders[order.ID] = stored
		return domain.NewSeatConflictError(order.ShowID, lost)
	}
	if stored.Status != domain.OrderStatusPaymentPending {
		return domain.ErrStateConflict
	}
	stored.Status = domain.OrderStatusConfirmed
	stored.TicketCode = ticketCode
	stored.ConfirmedAt = &confirmedAt
	l.orders[order.ID] = stored
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *fakeEvents) PublishJSON(ctx context.Context, key string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, key)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *fakeAudit) LogHold(ctx context.Context, action string, hold domain.Hold) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func (a *fakeAudit) LogOrder(ctx context.Context, action string, order domain.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

// nopCache always misses so aggregator reads go straight to the sources.
type nopCache struct{}

func (nopCache) GetAvailability(ctx context.Context, showID string, out interface{}) (bool, error) {
	return false, nil
}

func (nopCache) SetAvailability(ctx context.Context, showID string, snapshot interface{}, ttl time.Duration) error {
	return nil
}

func (nopCache) InvalidateAvailability(ctx context.Context, showID string) error {
	return nil
}
