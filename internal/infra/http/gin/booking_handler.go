package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staybook/internal/app/commands"
	bookingapp "staybook/internal/app/handlers/booking"
	domainbooking "staybook/internal/domain/booking"
)

type BookingHandler struct {
	Commands commands.Bus
}

type confirmBookingRequest struct {
	UnitID       string `json:"unit_id"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	Guests       int    `json:"guests"`
	QuoteToken   string `json:"quote_token"`
	ReferralCode string `json:"referral_code"`
}

func (h BookingHandler) Confirm(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	bookingID := c.Param("id")
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be a YYYY-MM-DD date"})
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be a YYYY-MM-DD date"})
		return
	}

	cmd := bookingapp.ConfirmBookingCommand{
		CommandID:       generateCommandID(),
		BookingID:       bookingID,
		UnitID:          req.UnitID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		QuoteToken:      req.QuoteToken,
		ReferralCode:    req.ReferralCode,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *bookingapp.ConfirmBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		switch {
		case errors.Is(err, domainbooking.ErrNoLongerAvailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainbooking.ErrQuoteMismatch):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
