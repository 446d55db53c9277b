package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format exchanged with the backend.
const DateLayout = "2006-01-02"

// AvailabilityWindow is an owner-defined open period for a venue.
// DayOfWeek uses Monday=0 ... Sunday=6 everywhere in this module.
type AvailabilityWindow struct {
	ID            uuid.UUID `json:"id,omitempty" bson:"id,omitempty"`
	DayOfWeek     int       `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	OpeningTime   string    `json:"opening_time" bson:"opening_time" validate:"required"` // HH:MM (24h)
	ClosingTime   string    `json:"closing_time" bson:"closing_time" validate:"required"` // HH:MM (24h)
	SpecificDate  string    `json:"specific_date,omitempty" bson:"specific_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RepeatsWeekly bool      `json:"repeats_weekly" bson:"repeats_weekly"`
}

// AppliesOn reports whether a date-specific window is pinned to the given day.
func (w AvailabilityWindow) AppliesOn(date time.Time) bool {
	return w.SpecificDate != "" && w.SpecificDate == date.Format(DateLayout)
}

type Venue struct {
	Id           uuid.UUID            `json:"id"`
	HostId       uuid.UUID            `json:"host_id,omitempty"`
	Name         string               `json:"name,omitempty"`
	Location     string               `json:"location,omitempty"`
	Capacity     int                  `json:"capacity,omitempty"`
	PricePerHour float64              `json:"price_per_hour" validate:"gte=0"`
	Availability []AvailabilityWindow `json:"availability,omitempty" validate:"dive"`
}
