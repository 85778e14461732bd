package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusFailed         OrderStatus = "FAILED"
	OrderStatusExpired        OrderStatus = "EXPIRED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

func (c Customer) Valid() bool {
	return c.Name != "" && c.Email != "" && c.Phone != ""
}

// Order is the durable, payable booking derived from exactly one Hold. Once
// CONFIRMED its seats are permanently unavailable, independent of lock state.
type Order struct {
	ID          uuid.UUID
	HoldID      uuid.UUID
	ShowID      string
	Seats       []string
	HolderID    uuid.UUID
	Customer    Customer
	Amount      float64
	Status      OrderStatus
	TicketCode  string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConfirmedAt *time.Time
}

func NewOrder(hold Hold, customer Customer, seatPrice float64, ttl time.Duration) Order {
	now := time.Now().UTC()
	return Order{
		ID:        uuid.New(),
		HoldID:    hold.ID,
		ShowID:    hold.ShowID,
		Seats:     hold.Seats,
		HolderID:  hold.HolderID,
		Customer:  customer,
		Amount:    seatPrice * float64(len(hold.Seats)),
		Status:    OrderStatusPaymentPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// EffectiveStatus derives the status as of now without mutating the stored
// row. PAYMENT_PENDING past expiry reads as EXPIRED; every other status is
// terminal and reads as stored.
func (o Order) EffectiveStatus(now time.Time) OrderStatus {
	if o.Status == OrderStatusPaymentPending && now.After(o.ExpiresAt) {
		return OrderStatusExpired
	}
	return o.Status
}

const ticketCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewTicketCode returns a 10 character code from an alphabet without
// lookalike characters. Uniqueness is not required; the order id is the key.
func NewTicketCode() string {
	b := make([]byte, 10)
	rand.Read(b)
	for i := range b {
		b[i] = ticketCodeAlphabet[int(b[i])%len(ticketCodeAlphabet)]
	}
	return string(b)
}
