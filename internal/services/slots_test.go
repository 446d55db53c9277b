package services

import (
	"errors"
	"testing"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func labels(slots []models.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label
	}
	return out
}

func TestWeekdayIndexMondayIsZero(t *testing.T) {
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, WeekdayIndex(monday.AddDate(0, 0, i)), monday.AddDate(0, 0, i).Weekday().String())
	}
}

func TestResolveSlots(t *testing.T) {
	weekly := models.AvailabilityWindow{DayOfWeek: 0, OpeningTime: "09:00", ClosingTime: "12:00", RepeatsWeekly: true}

	tests := []struct {
		name    string
		date    time.Time
		windows []models.AvailabilityWindow
		want    []string
	}{
		{
			name:    "monday window",
			date:    monday,
			windows: []models.AvailabilityWindow{weekly},
			want:    []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
		},
		{
			name:    "same window a week later",
			date:    monday.AddDate(0, 0, 7),
			windows: []models.AvailabilityWindow{weekly},
			want:    []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
		},
		{
			name:    "closed on tuesday",
			date:    monday.AddDate(0, 0, 1),
			windows: []models.AvailabilityWindow{weekly},
			want:    []string{},
		},
		{
			name: "partial trailing hour dropped",
			date: monday,
			windows: []models.AvailabilityWindow{
				{DayOfWeek: 0, OpeningTime: "09:00", ClosingTime: "11:30", RepeatsWeekly: true},
			},
			want: []string{"09:00-10:00", "10:00-11:00"},
		},
		{
			name: "window shorter than a slot",
			date: monday,
			windows: []models.AvailabilityWindow{
				{DayOfWeek: 0, OpeningTime: "09:00", ClosingTime: "09:45", RepeatsWeekly: true},
			},
			want: []string{},
		},
		{
			name: "specific date wins over weekly",
			date: monday,
			windows: []models.AvailabilityWindow{
				weekly,
				{DayOfWeek: 0, OpeningTime: "18:00", ClosingTime: "20:00", SpecificDate: "2024-01-01"},
			},
			want: []string{"18:00-19:00", "19:00-20:00"},
		},
		{
			name: "specific date for another day ignored",
			date: monday,
			windows: []models.AvailabilityWindow{
				{DayOfWeek: 0, OpeningTime: "18:00", ClosingTime: "20:00", SpecificDate: "2024-01-08"},
			},
			want: []string{},
		},
		{
			name: "open until midnight",
			date: monday,
			windows: []models.AvailabilityWindow{
				{DayOfWeek: 0, OpeningTime: "22:00", ClosingTime: "24:00", RepeatsWeekly: true},
			},
			want: []string{"22:00-23:00", "23:00-24:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := ResolveSlots(tt.date, tt.windows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, labels(slots))
		})
	}
}

func TestResolveSlotsNeverOverlap(t *testing.T) {
	slots, err := ResolveSlots(monday, []models.AvailabilityWindow{
		{DayOfWeek: 0, OpeningTime: "06:30", ClosingTime: "23:15", RepeatsWeekly: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for i := 1; i < len(slots); i++ {
		assert.LessOrEqual(t, slots[i-1].End, slots[i].Start)
		assert.Equal(t, slots[i-1].End, slots[i].Start)
	}
	for _, s := range slots {
		assert.Equal(t, SlotMinutes, s.End-s.Start)
	}
}

func TestResolveSlotsMalformedWindow(t *testing.T) {
	tests := []struct {
		name   string
		window models.AvailabilityWindow
	}{
		{"bad opening", models.AvailabilityWindow{OpeningTime: "9am", ClosingTime: "12:00"}},
		{"bad closing", models.AvailabilityWindow{OpeningTime: "09:00", ClosingTime: "25:00"}},
		{"closing before opening", models.AvailabilityWindow{OpeningTime: "12:00", ClosingTime: "09:00"}},
		{"empty window", models.AvailabilityWindow{OpeningTime: "09:00", ClosingTime: "09:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveSlots(monday, []models.AvailabilityWindow{tt.window})
			var dataErr *models.DataError
			assert.True(t, errors.As(err, &dataErr), "got %v", err)
		})
	}
}
