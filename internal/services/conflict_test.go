package services

import (
	"errors"
	"testing"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func morningSlots() []models.Slot {
	return []models.Slot{
		models.NewSlot(9*60, 10*60),
		models.NewSlot(10*60, 11*60),
		models.NewSlot(11*60, 12*60),
	}
}

func booking(date, start, end string, status models.BookingStatus) models.Booking {
	return models.Booking{BookingDate: date, StartTime: start, EndTime: end, Status: status}
}

func TestFilterAvailableRemovesBookedSlot(t *testing.T) {
	bookings := []models.Booking{booking("2024-01-01", "10:00", "11:00", models.BookingConfirmed)}

	available, err := FilterAvailable(morningSlots(), bookings)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00", "11:00-12:00"}, labels(available))
}

func TestFilterAvailableHalfOpenBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		expected []string
	}{
		{"ends where slot starts", "08:00", "09:00", []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}},
		{"starts where slot ends", "12:00", "13:00", []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}},
		{"partial overlap blocks slot", "09:30", "10:15", []string{"11:00-12:00"}},
		{"spans everything", "08:00", "13:00", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			available, err := FilterAvailable(morningSlots(), []models.Booking{
				booking("2024-01-01", tt.start, tt.end, models.BookingConfirmed),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, labels(available))
		})
	}
}

func TestFilterAvailableIgnoresCancelled(t *testing.T) {
	bookings := []models.Booking{booking("2024-01-01", "10:00", "11:00", models.BookingCancelled)}

	available, err := FilterAvailable(morningSlots(), bookings)
	require.NoError(t, err)
	assert.Len(t, available, 3)
}

func TestFilterAvailableIsIdempotent(t *testing.T) {
	bookings := []models.Booking{
		booking("2024-01-01", "09:00", "10:00", models.BookingConfirmed),
		booking("2024-01-01", "11:00", "12:00", models.BookingConfirmed),
	}

	once, err := FilterAvailable(morningSlots(), bookings)
	require.NoError(t, err)
	twice, err := FilterAvailable(once, bookings)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestFilterAvailableMalformedBooking(t *testing.T) {
	_, err := FilterAvailable(morningSlots(), []models.Booking{
		booking("2024-01-01", "ten", "11:00", models.BookingConfirmed),
	})
	var dataErr *models.DataError
	assert.True(t, errors.As(err, &dataErr))

	_, err = FilterAvailable(morningSlots(), []models.Booking{
		booking("2024-01-01", "11:00", "10:00", models.BookingConfirmed),
	})
	assert.True(t, errors.As(err, &dataErr))
}

func TestConfirmedBookingsOn(t *testing.T) {
	bookings := []models.Booking{
		booking("2024-01-01", "09:00", "10:00", models.BookingConfirmed),
		booking("2024-01-01", "10:00", "11:00", models.BookingCancelled),
		booking("2024-01-02", "11:00", "12:00", models.BookingConfirmed),
	}

	got := ConfirmedBookingsOn(bookings, "2024-01-01")
	require.Len(t, got, 1)
	assert.Equal(t, "09:00", got[0].StartTime)

	// a booking on another date must not block this day's slots
	available, err := FilterAvailable(morningSlots(), got)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00-11:00", "11:00-12:00"}, labels(available))
}
