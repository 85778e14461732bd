package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore holds the ephemeral per-seat ownership markers backing holds.
// A marker lives at seatlock:{showID}:{seatID} with value holderID:holdID and
// disappears at TTL expiry; no compensating delete is ever required.
type LockStore struct {
	client *redis.Client
}

func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// tryLockScript reads every requested seat before writing any of them. The
// script runs as one indivisible unit, so a concurrent TryLock on an
// overlapping seat set observes either all of our markers or none.
var tryLockScript = redis.NewScript(`
local holder = ARGV[1]
local value = ARGV[1] .. ":" .. ARGV[2]
local ttl = tonumber(ARGV[3])

for i = 1, #KEYS do
    local current = redis.call("GET", KEYS[i])
    if current then
        local owner = string.match(current, "^([^:]+):")
        if owner ~= holder then
            return KEYS[i]
        end
    end
end

for i = 1, #KEYS do
    redis.call("SET", KEYS[i], value, "EX", ttl)
end

return ""
`)

// unlockScript deletes only markers owned by the calling holder; seats owned
// by someone else or already expired are skipped.
var unlockScript = redis.NewScript(`
local holder = ARGV[1]
local removed = 0

for i = 1, #KEYS do
    local current = redis.call("GET", KEYS[i])
    if current then
        local owner = string.match(current, "^([^:]+):")
        if owner == holder then
            redis.call("DEL", KEYS[i])
            removed = removed + 1
        end
    end
end

return removed
`)

func seatKey(showID, seatID string) string {
	return fmt.Sprintf("seatlock:%s:%s", showID, seatID)
}

// TryLock atomically locks every seat for (holderID, holdID) or none of them.
// On conflict it returns the first contested seat id and locks nothing.
// Re-locking seats already owned by the same holder rewrites them under a
// fresh TTL.
func (s *LockStore) TryLock(ctx context.Context, showID string, seatIDs []string, holderID, holdID string, ttl time.Duration) (string, error) {
	keys := make([]string, len(seatIDs))
	for i, seat := range seatIDs {
		keys[i] = seatKey(showID, seat)
	}

	res, err := tryLockScript.Run(ctx, s.client, keys, holderID, holdID, int(ttl.Seconds())).Text()
	if err != nil {
		return "", err
	}
	if res == "" {
		return "", nil
	}
	// The script returns the conflicting key; strip it back to a seat id.
	return strings.TrimPrefix(res, fmt.Sprintf("seatlock:%s:", showID)), nil
}

// Unlock removes the holder's markers for the given seats. Seats not owned by
// holderID are left untouched.
func (s *LockStore) Unlock(ctx context.Context, showID string, seatIDs []string, holderID string) error {
	keys := make([]string, len(seatIDs))
	for i, seat := range seatIDs {
		keys[i] = seatKey(showID, seat)
	}
	return unlockScript.Run(ctx, s.client, keys, holderID).Err()
}

// ListLocked returns the seats of a show with a live ownership marker.
func (s *LockStore) ListLocked(ctx context.Context, showID string) ([]string, error) {
	prefix := fmt.Sprintf("seatlock:%s:", showID)
	var (
		cursor uint64
		seats  []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			seats = append(seats, strings.TrimPrefix(key, prefix))
		}
		cursor = next
		if cursor == 0 {
			return seats, nil
		}
	}
}
