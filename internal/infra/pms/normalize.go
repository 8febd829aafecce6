package pms

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	domainunits "staybook/internal/domain/units"
)

const dateLayout = "2006-01-02"

// rawDay tolerates the upstream payload variants. Some feeds send
// "available": 0|1, some "isAvailable": bool, some only a "status" string,
// and price arrives either as a bare number or as {amount, currency}.
type rawDay struct {
	Date         string           `json:"date"`
	Available    *json.RawMessage `json:"available"`
	IsAvailable  *bool            `json:"isAvailable"`
	Status       string           `json:"status"`
	Price        *json.RawMessage `json:"price"`
	MinimumStay  int              `json:"minimum_stay"`
	MinStay      int              `json:"minStay"`
	Reservations []rawReservation `json:"reservations"`
}

type rawReservation struct {
	ID        string `json:"id"`
	Arrival   string `json:"arrival_date"`
	Departure string `json:"departure_date"`
	CheckIn   string `json:"checkin"`
	CheckOut  string `json:"checkout"`
	Status    string `json:"status"`
}

type rawPriceObject struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// normalizeDay maps one upstream day record onto the canonical entry shape.
// All variant branching lives here; nothing downstream ever sees raw fields.
func normalizeDay(unit *domainunits.Unit, raw rawDay) (domaincalendar.Entry, error) {
	date, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return domaincalendar.Entry{}, fmt.Errorf("pms: bad calendar date %q: %w", raw.Date, err)
	}

	entry := domaincalendar.Entry{
		UnitID:      unit.ID,
		Date:        daterange.Day(date),
		Available:   normalizeAvailability(raw),
		MinimumStay: raw.MinimumStay,
	}
	if entry.MinimumStay == 0 {
		entry.MinimumStay = raw.MinStay
	}

	if raw.Price != nil {
		price, err := normalizePrice(*raw.Price, unit.Currency)
		if err != nil {
			return domaincalendar.Entry{}, err
		}
		entry.Price = price
	}

	for _, r := range raw.Reservations {
		fact, err := normalizeReservation(r)
		if err != nil {
			return domaincalendar.Entry{}, err
		}
		entry.Reservations = append(entry.Reservations, fact)
	}
	return entry, nil
}

func normalizeAvailability(raw rawDay) bool {
	if raw.IsAvailable != nil {
		return *raw.IsAvailable
	}
	if raw.Available != nil {
		var b bool
		if err := json.Unmarshal(*raw.Available, &b); err == nil {
			return b
		}
		var n float64
		if err := json.Unmarshal(*raw.Available, &n); err == nil {
			return n != 0
		}
	}
	switch strings.ToLower(strings.TrimSpace(raw.Status)) {
	case "available", "open", "free":
		return true
	case "blocked", "booked", "reserved", "unavailable":
		return false
	}
	// No signal at all reads as unavailable; the checker's unknown handling
	// applies only to dates missing from the snapshot entirely.
	return false
}

func normalizePrice(raw json.RawMessage, fallbackCurrency string) (*money.Money, error) {
	var amount float64
	if err := json.Unmarshal(raw, &amount); err == nil {
		m, err := money.New(int64(math.Round(amount*100)), fallbackCurrency)
		if err != nil {
			return nil, err
		}
		return &m, nil
	}
	var obj rawPriceObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("pms: unrecognized price payload: %s", string(raw))
	}
	currency := obj.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	m, err := money.New(int64(math.Round(obj.Amount*100)), currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func normalizeReservation(raw rawReservation) (domaincalendar.ReservationFact, error) {
	arrivalStr := raw.Arrival
	if arrivalStr == "" {
		arrivalStr = raw.CheckIn
	}
	departureStr := raw.Departure
	if departureStr == "" {
		departureStr = raw.CheckOut
	}
	arrival, err := time.Parse(dateLayout, arrivalStr)
	if err != nil {
		return domaincalendar.ReservationFact{}, fmt.Errorf("pms: bad reservation arrival %q: %w", arrivalStr, err)
	}
	departure, err := time.Parse(dateLayout, departureStr)
	if err != nil {
		return domaincalendar.ReservationFact{}, fmt.Errorf("pms: bad reservation departure %q: %w", departureStr, err)
	}
	return domaincalendar.ReservationFact{
		ID:        raw.ID,
		Arrival:   daterange.Day(arrival),
		Departure: daterange.Day(departure),
		Status:    normalizeReservationStatus(raw.Status),
	}, nil
}

func normalizeReservationStatus(status string) domaincalendar.ReservationStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled":
		return domaincalendar.ReservationCancelled
	case "pending", "hold", "tentative":
		return domaincalendar.ReservationPending
	default:
		return domaincalendar.ReservationConfirmed
	}
}
