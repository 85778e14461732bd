package domain

import "time"

// Show is the slice of catalog metadata the engine needs: existence, price
// and start time. The catalog service owns everything else about a show.
type Show struct {
	ID        string
	Name      string
	Venue     string
	StartsAt  time.Time
	SeatPrice float64
}
