package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/joshua-takyi/bashbay-client/internal/services"
)

// uuidParam parses a uuid path parameter, answering 400 when it is invalid.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	// Normalize incoming id: trim spaces and surrounding quotes which may occur
	// when clients pass values as JSON strings or templates.
	raw := strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: invalid %s %q", models.ErrValidation, name, raw)))
		return uuid.Nil, false
	}
	return id, true
}

// GetVenue returns the venue with its availability windows.
func GetVenue(v *services.VenuesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		venue, err := v.GetVenue(c.Request.Context(), venueID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		windows, err := v.Windows(c.Request.Context(), venueID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if len(windows) > 0 {
			venue.Availability = windows
		}

		c.JSON(http.StatusOK, models.SuccessResponse(venue, ""))
	}
}

// RefreshVenueWindows drops the cached windows so the next read goes to the
// backend.
func RefreshVenueWindows(v *services.VenuesService) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		if err := v.InvalidateWindows(c.Request.Context(), venueID); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Availability cache cleared"))
	}
}
