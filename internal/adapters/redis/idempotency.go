package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency stores the first response produced under an Idempotency-Key so
// a replayed booking request returns the original outcome instead of taking
// seats twice.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

type IdempResponse struct {
	Status   int       `json:"status"`
	Result   []byte    `json:"result"`
	StoredAt time.Time `json:"stored_at"`
}

func idempKey(key string) string {
	return "idemp:booking:" + key
}

func (i *Idempotency) Get(ctx context.Context, key string) (*IdempResponse, error) {
	val, err := i.client.Get(ctx, idempKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp IdempResponse
	err = json.Unmarshal(val, &resp)
	return &resp, err
}

// Set records the response only if the key has no record yet. The first
// outcome wins; a concurrent duplicate of the same request cannot replace it.
func (i *Idempotency) Set(ctx context.Context, key string, resp IdempResponse, ttl time.Duration) error {
	resp.StoredAt = time.Now().UTC()
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return i.client.SetNX(ctx, idempKey(key), data, ttl).Err()
}
