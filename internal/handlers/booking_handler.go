package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/joshua-takyi/bashbay-client/internal/services"
)

type toggleSlotRequest struct {
	Date  string `json:"date" binding:"required"`
	Start string `json:"start" binding:"required"`
}

type dateRequest struct {
	Date string `json:"date" binding:"required"`
}

// GetAvailability returns the day's slots, what is still free and the
// caller's pending selection. date defaults to today.
func GetAvailability(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		date := c.DefaultQuery("date", time.Now().Format(models.DateLayout))

		day, err := b.Availability(c.Request.Context(), claims.UserID(), venueID, date)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(day, ""))
	}
}

func ToggleSlot(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req toggleSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}

		day, err := b.Toggle(c.Request.Context(), claims.UserID(), venueID, req.Date, req.Start)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(day, ""))
	}
}

func ClearSelection(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: date is required", models.ErrValidation)))
			return
		}

		if err := b.ClearSelection(c.Request.Context(), claims.UserID(), venueID, date); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Selection cleared"))
	}
}

// SubmitBooking books the caller's pending selection for the date.
func SubmitBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		venueID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req dateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}

		result, err := b.SubmitSelection(c.Request.Context(), claims.UserID(), venueID, req.Date)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(result, "Booking confirmed"))
	}
}

func CancelBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		bookingID, ok := uuidParam(c, "booking_id")
		if !ok {
			return
		}

		result, err := b.Cancel(c.Request.Context(), claims.UserID(), bookingID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(result, "Booking cancelled"))
	}
}
