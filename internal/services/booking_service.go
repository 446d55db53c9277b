package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"golang.org/x/sync/errgroup"
)

// DayAvailability is everything the booking screen shows for one venue and
// date. It is derived on every request and never stored.
type DayAvailability struct {
	VenueID      uuid.UUID           `json:"venue_id"`
	Date         string              `json:"date"`
	PricePerHour float64             `json:"price_per_hour"`
	Slots        []models.Slot       `json:"slots"`
	Available    []models.Slot       `json:"available"`
	Selection    models.SelectionSet `json:"selection"`
	Total        float64             `json:"total"`
}

// BookingResult pairs a changed booking with the recomputed day.
type BookingResult struct {
	Booking *models.Booking  `json:"booking"`
	Day     *DayAvailability `json:"day,omitempty"`
}

type BookingService struct {
	venues     *VenuesService
	backend    BookingBackend
	selections models.SelectionRepo
	logger     *slog.Logger
}

func NewBookingService(venues *VenuesService, backend BookingBackend, selections models.SelectionRepo, logger *slog.Logger) *BookingService {
	return &BookingService{
		venues:     venues,
		backend:    backend,
		selections: selections,
		logger:     logger,
	}
}

// Availability fetches the venue, its windows and the day's bookings, then
// resolves and filters slots. A stored selection that no longer fits the
// available slots is dropped.
func (bs *BookingService) Availability(ctx context.Context, userID string, venueID uuid.UUID, date string) (*DayAvailability, error) {
	day, err := helpers.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	var (
		venue    *models.Venue
		windows  []models.AvailabilityWindow
		bookings []models.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		venue, err = bs.venues.GetVenue(gctx, venueID)
		return err
	})
	g.Go(func() error {
		var err error
		windows, err = bs.venues.Windows(gctx, venueID)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = bs.backend.ListBookings(gctx, venueID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		windows = venue.Availability
	}

	slots, err := ResolveSlots(day, windows)
	if err != nil {
		return nil, err
	}
	available, err := FilterAvailable(slots, ConfirmedBookingsOn(bookings, date))
	if err != nil {
		return nil, err
	}

	result := &DayAvailability{
		VenueID:      venueID,
		Date:         date,
		PricePerHour: venue.PricePerHour,
		Slots:        slots,
		Available:    available,
		Selection:    models.SelectionSet{},
	}

	if userID != "" {
		key := models.SelectionKey{UserID: userID, VenueID: venueID, Date: date}
		selection, err := bs.selections.GetSelection(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load selection: %w", err)
		}
		pruned := pruneSelection(selection, available)
		if len(pruned) != len(selection) {
			bs.logger.Info("dropping selection that is no longer available",
				"venue_id", venueID, "date", date, "slots", len(selection))
			if err := bs.selections.DeleteSelection(ctx, key); err != nil {
				return nil, fmt.Errorf("clear selection: %w", err)
			}
		}
		result.Selection = pruned
	}
	result.Total = ComputeTotal(result.Selection, result.PricePerHour)
	return result, nil
}

// Toggle adds or removes the available slot starting at start ("HH:MM") in
// the user's selection for the day.
func (bs *BookingService) Toggle(ctx context.Context, userID string, venueID uuid.UUID, date, start string) (*DayAvailability, error) {
	startMin, err := helpers.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	day, err := bs.Availability(ctx, userID, venueID, date)
	if err != nil {
		return nil, err
	}

	var slot models.Slot
	found := false
	for _, s := range day.Available {
		if s.Start == startMin {
			slot, found = s, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: slot %s is not available", models.ErrValidation, start)
	}

	next, err := ToggleSlot(day.Selection, slot)
	if err != nil {
		return nil, err
	}

	key := models.SelectionKey{UserID: userID, VenueID: venueID, Date: date}
	if err := bs.selections.SaveSelection(ctx, key, next); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	day.Selection = next
	day.Total = ComputeTotal(next, day.PricePerHour)
	return day, nil
}

// Submit books the span covered by set. The caller refreshes availability
// afterwards; the local booking list is never patched.
func (bs *BookingService) Submit(ctx context.Context, venueID uuid.UUID, date string, set models.SelectionSet) (*models.Booking, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: select at least one slot", models.ErrValidation)
	}
	if len(set) > models.MaxSelectionSlots {
		return nil, models.ErrTooLong
	}
	if !isContiguous(set) {
		return nil, models.ErrNonContiguous
	}

	venue, err := bs.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	start, end, _ := set.Span()
	req := models.CreateBookingRequest{
		VenueId:     venueID,
		BookingDate: date,
		StartTime:   helpers.FormatClock(start),
		EndTime:     helpers.FormatClock(end),
		TotalPrice:  ComputeTotal(set, venue.PricePerHour),
	}
	if err := models.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	booking, err := bs.backend.CreateBooking(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrBookingConflict) {
			bs.logger.Info("booking conflict", "venue_id", venueID, "date", date,
				"start", req.StartTime, "end", req.EndTime)
		}
		return nil, err
	}
	return booking, nil
}

// SubmitSelection submits the user's stored selection, clears it on success
// and returns the recomputed day.
func (bs *BookingService) SubmitSelection(ctx context.Context, userID string, venueID uuid.UUID, date string) (*BookingResult, error) {
	key := models.SelectionKey{UserID: userID, VenueID: venueID, Date: date}
	set, err := bs.selections.GetSelection(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	booking, err := bs.Submit(ctx, venueID, date, set)
	if err != nil {
		return nil, err
	}

	if err := bs.selections.DeleteSelection(ctx, key); err != nil {
		bs.logger.Warn("failed to clear submitted selection", "error", err)
	}
	bs.logger.Info("booking created", "booking_id", booking.ID, "venue_id", venueID, "date", date)

	day, err := bs.Availability(ctx, userID, venueID, date)
	if err != nil {
		// the booking exists; the caller can refresh on its own
		bs.logger.Warn("refetch after booking failed", "error", err)
		return &BookingResult{Booking: booking}, nil
	}
	return &BookingResult{Booking: booking, Day: day}, nil
}

// Cancel moves a confirmed booking to cancelled through the backend and
// recomputes the affected day.
func (bs *BookingService) Cancel(ctx context.Context, userID string, bookingID uuid.UUID) (*BookingResult, error) {
	booking, err := bs.backend.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	bs.logger.Info("booking cancelled", "booking_id", bookingID)

	if booking.VenueId == uuid.Nil || booking.BookingDate == "" {
		return &BookingResult{Booking: booking}, nil
	}
	day, err := bs.Availability(ctx, userID, booking.VenueId, booking.BookingDate)
	if err != nil {
		bs.logger.Warn("refetch after cancel failed", "error", err)
		return &BookingResult{Booking: booking}, nil
	}
	return &BookingResult{Booking: booking, Day: day}, nil
}

func (bs *BookingService) ClearSelection(ctx context.Context, userID string, venueID uuid.UUID, date string) error {
	key := models.SelectionKey{UserID: userID, VenueID: venueID, Date: date}
	if err := bs.selections.DeleteSelection(ctx, key); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}
