package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	referralapp "staybook/internal/app/handlers/referral"
	"staybook/internal/app/queries"
	domainreferral "staybook/internal/domain/referral"
)

type ReferralHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createRuleRequest struct {
	DiscountKind    string     `json:"discount_kind"`
	DiscountValue   float64    `json:"discount_value"`
	CommissionKind  string     `json:"commission_kind"`
	CommissionValue float64    `json:"commission_value"`
	EffectiveStart  *time.Time `json:"effective_start"`
	EffectiveEnd    *time.Time `json:"effective_end"`
}

func (h ReferralHandler) CreateRule(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := referralapp.CreateRuleCommand{
		PartyID:         c.Param("id"),
		DiscountKind:    req.DiscountKind,
		DiscountValue:   req.DiscountValue,
		CommissionKind:  req.CommissionKind,
		CommissionValue: req.CommissionValue,
		EffectiveStart:  req.EffectiveStart,
		EffectiveEnd:    req.EffectiveEnd,
	}
	result, err := commands.Dispatch[referralapp.CreateRuleCommand, *referralapp.CreateRuleResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domainreferral.ErrPartyNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReferralHandler) ListRules(c *gin.Context) {
	query := referralapp.ListRulesQuery{PartyID: c.Param("id")}
	result, err := queries.Ask[referralapp.ListRulesQuery, []dto.IncentiveRule](c.Request.Context(), h.Queries, query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": result})
}

func (h ReferralHandler) CommissionReport(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a YYYY-MM-DD date"})
		return
	}
	query := referralapp.CommissionReportQuery{From: from, To: to}
	result, err := queries.Ask[referralapp.CommissionReportQuery, dto.CommissionReport](c.Request.Context(), h.Queries, query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type updateLedgerStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h ReferralHandler) UpdateLedgerStatus(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req updateLedgerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := referralapp.UpdateLedgerStatusCommand{
		EntryID: c.Param("id"),
		Target:  req.Status,
		Notes:   req.Notes,
	}
	result, err := commands.Dispatch[referralapp.UpdateLedgerStatusCommand, *referralapp.UpdateLedgerStatusResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		switch {
		case errors.Is(err, domainreferral.ErrLedgerEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domainreferral.ErrLedgerTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReferralHTTP = ReferralHandler{}
