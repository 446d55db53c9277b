package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"golang.org/x/sync/singleflight"
)

// BookingBackend is the slice of the backend API the booking flow needs.
type BookingBackend interface {
	GetVenue(ctx context.Context, venueID uuid.UUID) (*models.Venue, error)
	ListAvailability(ctx context.Context, venueID uuid.UUID) ([]models.AvailabilityWindow, error)
	ListBookings(ctx context.Context, venueID uuid.UUID, date string) ([]models.Booking, error)
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

type WindowCache interface {
	GetWindows(ctx context.Context, venueID uuid.UUID) ([]models.AvailabilityWindow, bool, error)
	SetWindows(ctx context.Context, venueID uuid.UUID, windows []models.AvailabilityWindow) error
	InvalidateWindows(ctx context.Context, venueID uuid.UUID) error
}

type VenuesService struct {
	backend BookingBackend
	cache   WindowCache
	loads   singleflight.Group
	logger  *slog.Logger
}

// NewVenuesService builds the venue lookup. cache may be nil.
func NewVenuesService(backend BookingBackend, cache WindowCache, logger *slog.Logger) *VenuesService {
	return &VenuesService{
		backend: backend,
		cache:   cache,
		logger:  logger,
	}
}

func (vs *VenuesService) GetVenue(ctx context.Context, venueID uuid.UUID) (*models.Venue, error) {
	venue, err := vs.backend.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if err := models.Validate.Struct(venue); err != nil {
		return nil, &models.DataError{Field: "venue", Value: venueID.String(), Err: err}
	}
	return venue, nil
}

// Windows returns the venue's availability windows, served from the cache
// when one is configured.
func (vs *VenuesService) Windows(ctx context.Context, venueID uuid.UUID) ([]models.AvailabilityWindow, error) {
	if vs.cache != nil {
		windows, ok, err := vs.cache.GetWindows(ctx, venueID)
		if err != nil {
			vs.logger.Warn("window cache read failed", "venue_id", venueID, "error", err)
		} else if ok {
			return windows, nil
		}
	}

	v, err, _ := vs.loads.Do(venueID.String(), func() (any, error) {
		windows, err := vs.backend.ListAvailability(ctx, venueID)
		if err != nil {
			return nil, err
		}
		for i := range windows {
			if err := models.Validate.Struct(windows[i]); err != nil {
				return nil, &models.DataError{Field: "availability window", Value: windows[i].ID.String(), Err: err}
			}
		}
		if vs.cache != nil {
			if err := vs.cache.SetWindows(ctx, venueID, windows); err != nil {
				vs.logger.Warn("window cache write failed", "venue_id", venueID, "error", err)
			}
		}
		return windows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	return v.([]models.AvailabilityWindow), nil
}

func (vs *VenuesService) InvalidateWindows(ctx context.Context, venueID uuid.UUID) error {
	if vs.cache == nil {
		return nil
	}
	return vs.cache.InvalidateWindows(ctx, venueID)
}
