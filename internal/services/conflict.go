package services

import (
	"errors"

	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// ConfirmedBookingsOn keeps the confirmed bookings for one calendar date.
func ConfirmedBookingsOn(bookings []models.Booking, date string) []models.Booking {
	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsConfirmed() && b.BookingDate == date {
			out = append(out, b)
		}
	}
	return out
}

type busySpan struct {
	start, end int
}

// FilterAvailable drops every slot that overlaps a confirmed booking. The
// result is recomputed from scratch on each call.
func FilterAvailable(slots []models.Slot, bookings []models.Booking) ([]models.Slot, error) {
	busy := make([]busySpan, 0, len(bookings))
	for _, b := range bookings {
		if !b.IsConfirmed() {
			continue
		}
		start, err := helpers.ParseClock(b.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := helpers.ParseClock(b.EndTime)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, &models.DataError{
				Field: "booking " + b.ID.String(),
				Value: b.StartTime + "-" + b.EndTime,
				Err:   errors.New("end time must be after start time"),
			}
		}
		busy = append(busy, busySpan{start: start, end: end})
	}

	available := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		free := true
		for _, b := range busy {
			if s.Overlaps(b.start, b.end) {
				free = false
				break
			}
		}
		if free {
			available = append(available, s)
		}
	}
	return available, nil
}
