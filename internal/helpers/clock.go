package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
)

const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" (or "HH:MM:SS" with zero seconds) into minutes
// since midnight. "24:00" is accepted as the end of the day.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, &models.DataError{Field: "time", Value: value}
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, &models.DataError{Field: "time", Value: value, Err: fmt.Errorf("seconds are not supported")}
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) > 2 {
		return 0, &models.DataError{Field: "time", Value: value}
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, &models.DataError{Field: "time", Value: value}
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, &models.DataError{Field: "time", Value: value}
	}

	total := hours*60 + minutes
	if total > minutesPerDay {
		return 0, &models.DataError{Field: "time", Value: value}
	}
	return total, nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &models.DataError{Field: "date", Value: value, Err: err}
	}
	return d, nil
}
