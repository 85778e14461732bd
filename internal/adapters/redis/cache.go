package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func availabilityKey(showID string) string {
	return "avail:" + showID
}

// GetAvailability decodes a cached snapshot into out; the bool reports a hit.
func (c *Cache) GetAvailability(ctx context.Context, showID string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, availabilityKey(showID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, out)
}

func (c *Cache) SetAvailability(ctx context.Context, showID string, snapshot interface{}, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(showID), data, ttl).Err()
}

// InvalidateAvailability is best-effort; the short snapshot TTL is the
// correctness backstop, not this delete.
func (c *Cache) InvalidateAvailability(ctx context.Context, showID string) error {
	return c.client.Del(ctx, availabilityKey(showID)).Err()
}
