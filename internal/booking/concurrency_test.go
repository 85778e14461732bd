package booking_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
)

// Mutual exclusion: concurrent overlapping hold requests must partition the
// seat space — every seat is granted to at most one successful hold.
func TestConcurrentHoldsPartitionSeats(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	seatPool := []string{"A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4"}

	const attempts = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted [][]string
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		seed := int64(i)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			n := 1 + rng.Intn(3)
			picked := make(map[string]struct{})
			for len(picked) < n {
				picked[seatPool[rng.Intn(len(seatPool))]] = struct{}{}
			}
			var seats []string
			for seat := range picked {
				seats = append(seats, seat)
			}

			hold, err := e.holds.CreateHold(ctx, showID, uuid.New(), seats)
			if err != nil {
				if !domain.IsSeatConflict(err) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			granted = append(granted, hold.Seats)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[string]int)
	for _, seats := range granted {
		for _, seat := range seats {
			seen[seat]++
		}
	}
	for seat, count := range seen {
		if count > 1 {
			t.Errorf("seat %s granted to %d holds", seat, count)
		}
	}
	if len(granted) == 0 {
		t.Error("expected at least one successful hold")
	}
}
