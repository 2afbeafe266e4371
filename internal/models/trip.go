package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the operating status of a ferry crossing
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip is a scheduled ferry crossing. Read-only except for remaining capacity,
// which only the booking commit decrements.
type Trip struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	DeparturePort     string     `json:"departure_port" db:"departure_port"`
	ArrivalPort       string     `json:"arrival_port" db:"arrival_port"`
	DepartureTime     time.Time  `json:"departure_time" db:"departure_time"`
	ShipName          string     `json:"ship_name" db:"ship_name"`
	BaseFare          int64      `json:"base_fare" db:"base_fare"`
	RemainingCapacity int        `json:"remaining_capacity" db:"remaining_capacity"`
	Status            TripStatus `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsBookable reports whether the trip can still take bookings at the given time
func (t *Trip) IsBookable(now time.Time) bool {
	return t.Status == TripStatusScheduled && t.DepartureTime.After(now)
}

// HasCapacityFor reports whether the trip has at least n seats left
func (t *Trip) HasCapacityFor(n int) bool {
	return t.RemainingCapacity >= n
}
