package services

import (
	"errors"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// SlotMinutes is the fixed slot granularity.
const SlotMinutes = 60

// WeekdayIndex converts a date to the Monday=0 ... Sunday=6 convention used
// by availability windows. All weekday math goes through here.
func WeekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// SelectWindow picks the window governing date. A window pinned to the exact
// date wins over a weekly one.
func SelectWindow(date time.Time, windows []models.AvailabilityWindow) (models.AvailabilityWindow, bool) {
	for _, w := range windows {
		if w.AppliesOn(date) {
			return w, true
		}
	}

	day := WeekdayIndex(date)
	for _, w := range windows {
		if w.SpecificDate == "" && w.DayOfWeek == day {
			return w, true
		}
	}
	return models.AvailabilityWindow{}, false
}

// ResolveSlots cuts the governing window for date into consecutive one-hour
// slots. A trailing remainder shorter than an hour is dropped. No window
// means the venue is closed and the result is empty.
func ResolveSlots(date time.Time, windows []models.AvailabilityWindow) ([]models.Slot, error) {
	w, ok := SelectWindow(date, windows)
	if !ok {
		return []models.Slot{}, nil
	}

	open, err := helpers.ParseClock(w.OpeningTime)
	if err != nil {
		return nil, err
	}
	closing, err := helpers.ParseClock(w.ClosingTime)
	if err != nil {
		return nil, err
	}
	if closing <= open {
		return nil, &models.DataError{
			Field: "availability window",
			Value: w.OpeningTime + "-" + w.ClosingTime,
			Err:   errors.New("closing time must be after opening time"),
		}
	}

	slots := make([]models.Slot, 0, (closing-open)/SlotMinutes)
	for start := open; start+SlotMinutes <= closing; start += SlotMinutes {
		slots = append(slots, models.NewSlot(start, start+SlotMinutes))
	}
	return slots, nil
}
