package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
)

// Hold records outlive the seat locks they describe: the record keeps a long
// retention TTL so reads can keep deriving EXPIRED after the locks lapse.
const holdRetention = 24 * time.Hour

type HoldStore struct {
	client *redis.Client
}

func NewHoldStore(client *redis.Client) *HoldStore {
	return &HoldStore{client: client}
}

type holdRecord struct {
	ID        string    `json:"id"`
	ShowID    string    `json:"show_id"`
	HolderID  string    `json:"holder_id"`
	Seats     []string  `json:"seats"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func holdKey(id string) string {
	return "hold:" + id
}

func (s *HoldStore) Save(ctx context.Context, hold domain.Hold) error {
	rec := holdRecord{
		ID:        hold.ID.String(),
		ShowID:    hold.ShowID,
		HolderID:  hold.HolderID.String(),
		Seats:     hold.Seats,
		Status:    string(hold.Status),
		CreatedAt: hold.CreatedAt,
		ExpiresAt: hold.ExpiresAt,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, holdKey(rec.ID), data, holdRetention).Err()
}

func (s *HoldStore) Get(ctx context.Context, id string) (*domain.Hold, error) {
	data, err := s.client.Get(ctx, holdKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec holdRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (rec holdRecord) toDomain() (*domain.Hold, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, err
	}
	holderID, err := uuid.Parse(rec.HolderID)
	if err != nil {
		return nil, err
	}
	return &domain.Hold{
		ID:        id,
		ShowID:    rec.ShowID,
		HolderID:  holderID,
		Seats:     rec.Seats,
		Status:    domain.HoldStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
