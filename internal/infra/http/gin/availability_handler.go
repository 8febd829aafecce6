package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	"staybook/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	unitID := c.Param("id")
	checkIn, err := time.Parse("2006-01-02", c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be a YYYY-MM-DD date"})
		return
	}
	checkOut, err := time.Parse("2006-01-02", c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be a YYYY-MM-DD date"})
		return
	}
	guests, err := strconv.Atoi(c.DefaultQuery("guests", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guests must be an integer"})
		return
	}

	query := availabilityapp.CheckRangeQuery{UnitID: unitID, CheckIn: checkIn, CheckOut: checkOut, Guests: guests}
	result, err := queries.Ask[availabilityapp.CheckRangeQuery, dto.AvailabilityCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
