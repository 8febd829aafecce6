package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	pricingapp "staybook/internal/app/handlers/pricing"
	"staybook/internal/app/queries"
)

type PricingHandler struct {
	Queries queries.Bus
}

type quoteStayRequest struct {
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	Guests       int    `json:"guests"`
	Pets         int    `json:"pets"`
	ReferralCode string `json:"referral_code"`
}

func (h PricingHandler) Quote(c *gin.Context) {
	unitID := c.Param("id")
	var req quoteStayRequest
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

	query := pricingapp.QuoteStayQuery{
		UnitID:       unitID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Guests:       req.Guests,
		Pets:         req.Pets,
		ReferralCode: req.ReferralCode,
	}
	result, err := queries.Ask[pricingapp.QuoteStayQuery, dto.StayQuote](c.Request.Context(), h.Queries, query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
