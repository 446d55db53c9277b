package connect

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// Backend endpoints used by the booking and messaging services.

func (c *Client) GetVenue(ctx context.Context, venueID uuid.UUID) (*models.Venue, error) {
	var venue models.Venue
	if err := c.GetJSON(ctx, fmt.Sprintf("/api/venues/%s/", venueID), nil, &venue); err != nil {
		return nil, fmt.Errorf("get venue %s: %w", venueID, err)
	}
	return &venue, nil
}

func (c *Client) ListAvailability(ctx context.Context, venueID uuid.UUID) ([]models.AvailabilityWindow, error) {
	windows, err := GetAll[models.AvailabilityWindow](ctx, c, fmt.Sprintf("/api/venues/%s/availability/", venueID), nil)
	if err != nil {
		return nil, fmt.Errorf("list availability for %s: %w", venueID, err)
	}
	return windows, nil
}

func (c *Client) ListBookings(ctx context.Context, venueID uuid.UUID, date string) ([]models.Booking, error) {
	query := url.Values{}
	query.Set("venue", venueID.String())
	query.Set("date", date)
	bookings, err := GetAll[models.Booking](ctx, c, "/api/bookings/", query)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s on %s: %w", venueID, date, err)
	}
	return bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	var booking models.Booking
	if err := c.PostJSON(ctx, "/api/bookings/", req, &booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &booking, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := c.PostJSON(ctx, fmt.Sprintf("/api/bookings/%s/cancel/", bookingID), nil, &booking); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	conversations, err := GetAll[models.Conversation](ctx, c, "/api/chat/conversations/", nil)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages returns one page of history. An empty cursor asks for the
// most recent page; otherwise cursor is the next link of the previous page.
func (c *Client) ListMessages(ctx context.Context, conversationID, cursor string) (Page[models.Message], error) {
	path := cursor
	if path == "" {
		path = fmt.Sprintf("/api/chat/conversations/%s/messages/", url.PathEscape(conversationID))
	}
	page, err := GetPage[models.Message](ctx, c, path, nil)
	if err != nil {
		return Page[models.Message]{}, fmt.Errorf("list messages for %s: %w", conversationID, err)
	}
	return page, nil
}
