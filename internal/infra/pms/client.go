package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"staybook/internal/app/policies"
	domaincalendar "staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
	domainunits "staybook/internal/domain/units"
)

// Client talks to the remote property-management system. It serves two
// contracts: the calendar feed and the remote pricing quote tier. All retry
// handling lives here so callers make a single logical call.
type Client struct {
	HTTP     *http.Client
	BaseURL  string
	QuoteURL string
	Retry    RetryPolicy
	Logger   *slog.Logger
}

type calendarResponse struct {
	UnitID string   `json:"unit_id"`
	Days   []rawDay `json:"days"`
}

type quoteRequest struct {
	UnitID     string `json:"unit_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	GuestCount int    `json:"guest_count"`
}

type quoteResponse struct {
	Available bool `json:"available"`
	Breakdown *struct {
		Nights      int     `json:"nights"`
		NightlyRate float64 `json:"nightly_rate"`
		Subtotal    float64 `json:"subtotal"`
		Taxes       float64 `json:"taxes"`
		Fees        float64 `json:"fees"`
		Total       float64 `json:"total"`
		Currency    string  `json:"currency"`
	} `json:"breakdown"`
}

// FetchRange pulls the unit's calendar for [from, to) and normalizes every
// day into the canonical entry shape.
func (c *Client) FetchRange(ctx context.Context, unit *domainunits.Unit, from, to time.Time) ([]domaincalendar.Entry, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("pms: http client not configured")
	}
	if c.BaseURL == "" {
		return nil, errors.New("pms: base url not configured")
	}
	if unit == nil {
		return nil, errors.New("pms: unit missing")
	}

	ref := unit.ExternalRef
	if ref == "" {
		ref = string(unit.ID)
	}
	endpoint := fmt.Sprintf("%s/units/%s/calendar?from=%s&to=%s",
		c.BaseURL, url.PathEscape(ref),
		from.Format(dateLayout), to.Format(dateLayout))

	var payload calendarResponse
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		return c.doJSON(request, &payload)
	})
	if err != nil {
		c.logError("calendar fetch failed", unit.ID, err)
		return nil, err
	}

	entries := make([]domaincalendar.Entry, 0, len(payload.Days))
	for _, day := range payload.Days {
		entry, err := normalizeDay(unit, day)
		if err != nil {
			c.logError("calendar day rejected", unit.ID, err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Quote asks the remote system to price a stay.
func (c *Client) Quote(ctx context.Context, req domainpricing.QuoteRequest) (domainpricing.QuoteResponse, error) {
	var zero domainpricing.QuoteResponse
	if c == nil || c.HTTP == nil {
		return zero, errors.New("pms: http client not configured")
	}
	if c.QuoteURL == "" {
		return zero, errors.New("pms: quote url not configured")
	}

	body, err := json.Marshal(quoteRequest{
		UnitID:     string(req.UnitID),
		StartDate:  req.Range.CheckIn.Format(dateLayout),
		EndDate:    req.Range.CheckOut.Format(dateLayout),
		GuestCount: req.Guests,
	})
	if err != nil {
		return zero, err
	}

	var payload quoteResponse
	err = c.Retry.Do(ctx, func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.QuoteURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		request.Header.Set("Content-Type", "application/json")
		return c.doJSON(request, &payload)
	})
	if err != nil {
		c.logError("remote quote failed", req.UnitID, err)
		return zero, err
	}

	resp := domainpricing.QuoteResponse{Available: payload.Available}
	if payload.Breakdown != nil {
		resp.Breakdown = &domainpricing.QuoteBreakdown{
			Nights:      payload.Breakdown.Nights,
			NightlyRate: payload.Breakdown.NightlyRate,
			Subtotal:    payload.Breakdown.Subtotal,
			Total:       payload.Breakdown.Total,
			Currency:    payload.Breakdown.Currency,
		}
	}
	return resp, nil
}

func (c *Client) doJSON(request *http.Request, out any) error {
	resp, err := c.HTTP.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pms: upstream returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) logError(msg string, unitID domainunits.UnitID, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "unit_id", unitID, "error", err)
}

var (
	_ policies.CalendarFeed      = (*Client)(nil)
	_ domainpricing.QuoteService = (*Client)(nil)
)
