package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID          uuid.UUID     `json:"id"`
	VenueId     uuid.UUID     `json:"venue_id"`
	BookerId    string        `json:"booker_id"`
	BookingDate string        `json:"booking_date"` // YYYY-MM-DD
	StartTime   string        `json:"start_time"`   // HH:MM
	EndTime     string        `json:"end_time"`     // HH:MM
	Status      BookingStatus `json:"status"`
	TotalPrice  float64       `json:"total_price"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}

// IsConfirmed is true only for bookings that block slots.
func (b Booking) IsConfirmed() bool {
	return b.Status == BookingConfirmed
}

type CreateBookingRequest struct {
	VenueId     uuid.UUID `json:"venue_id" validate:"required"`
	BookingDate string    `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string    `json:"start_time" validate:"required"`
	EndTime     string    `json:"end_time" validate:"required"`
	TotalPrice  float64   `json:"total_price" validate:"gte=0"`
}
