package domain

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "HELD"
	HoldStatusExpired  HoldStatus = "EXPIRED"
	HoldStatusReleased HoldStatus = "RELEASED"
)

// Hold is a time-boxed claim on specific seats by one holder, backed by seat
// locks in the lock store for as long as its status is HELD.
type Hold struct {
	ID        uuid.UUID
	ShowID    string
	HolderID  uuid.UUID
	Seats     []string
	Status    HoldStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewHold(showID string, holderID uuid.UUID, seats []string, ttl time.Duration) Hold {
	now := time.Now().UTC()
	return Hold{
		ID:        uuid.New(),
		ShowID:    showID,
		HolderID:  holderID,
		Seats:     seats,
		Status:    HoldStatusHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// EffectiveStatus derives the status as of now without mutating the stored
// record. A HELD hold past its expiry reads as EXPIRED.
func (h Hold) EffectiveStatus(now time.Time) HoldStatus {
	if h.Status == HoldStatusHeld && now.After(h.ExpiresAt) {
		return HoldStatusExpired
	}
	return h.Status
}
