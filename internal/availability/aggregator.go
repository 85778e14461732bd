package availability

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// Snapshot is one unavailable-set view of a show: everything a new hold must
// avoid, with the transiently held subset broken out for display.
type Snapshot struct {
	Unavailable []string `json:"unavailable_seat_ids"`
	Held        []string `json:"held_seat_ids"`
}

type StaticSource interface {
	BlockedSeats(ctx context.Context, showID string) ([]string, error)
}

type ConfirmedSource interface {
	ConfirmedSeats(ctx context.Context, showID string) ([]string, error)
}

type LockedSource interface {
	ListLocked(ctx context.Context, showID string) ([]string, error)
}

type SnapshotCache interface {
	GetAvailability(ctx context.Context, showID string, out interface{}) (bool, error)
	SetAvailability(ctx context.Context, showID string, snapshot interface{}, ttl time.Duration) error
	InvalidateAvailability(ctx context.Context, showID string) error
}

// Aggregator combines statically blocked, durably confirmed and transiently
// locked seats into one view, behind a read-through cache whose TTL is short
// enough that a stale entry never outlives a single user interaction.
type Aggregator struct {
	static    StaticSource
	confirmed ConfirmedSource
	locked    LockedSource
	cache     SnapshotCache
	cacheTTL  time.Duration
	logger    observability.Logger
}

func NewAggregator(static StaticSource, confirmed ConfirmedSource, locked LockedSource, cache SnapshotCache, cacheTTL time.Duration, logger observability.Logger) *Aggregator {
	return &Aggregator{
		static:    static,
		confirmed: confirmed,
		locked:    locked,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func (a *Aggregator) Snapshot(ctx context.Context, showID string) (*Snapshot, error) {
	var cached Snapshot
	if hit, err := a.cache.GetAvailability(ctx, showID, &cached); err != nil {
		a.logger.Warn("availability cache read failed", err)
	} else if hit {
		return &cached, nil
	}

	var blocked, confirmed, held []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blocked, err = a.static.BlockedSeats(gctx, showID)
		return err
	})
	g.Go(func() error {
		var err error
		confirmed, err = a.confirmed.ConfirmedSeats(gctx, showID)
		return err
	})
	g.Go(func() error {
		var err error
		held, err = a.locked.ListLocked(gctx, showID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Unavailable: union(blocked, confirmed, held),
		Held:        dedupe(held),
	}

	if err := a.cache.SetAvailability(ctx, showID, snap, a.cacheTTL); err != nil {
		a.logger.Warn("availability cache write failed", err)
	}
	return snap, nil
}

// Invalidate drops the cached view after a write. Best-effort: the TTL is the
// correctness backstop.
func (a *Aggregator) Invalidate(ctx context.Context, showID string) {
	if err := a.cache.InvalidateAvailability(ctx, showID); err != nil {
		a.logger.Warn("availability cache invalidation failed", err)
	}
}

func union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, seat := range set {
			if _, ok := seen[seat]; !ok {
				seen[seat] = struct{}{}
				out = append(out, seat)
			}
		}
	}
	sort.Strings(out)
	return out
}

func dedupe(set []string) []string {
	return union(set)
}
