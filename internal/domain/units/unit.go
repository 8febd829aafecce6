package units

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnitNotFound = errors.New("units: unit not found")
	ErrInvalidUnit  = errors.New("units: invalid unit definition")
)

type UnitID string

// Unit is the rentable property the core prices and gates availability for.
// Calendar facts live in the snapshot store; the unit only carries metadata
// the pricing fallback tiers and validation need.
type Unit struct {
	ID                 UnitID
	Name               string
	Currency           string
	BaseNightlyRate    int64 // minor units; tier-3 pricing fallback
	GuestsLimit        int
	PetsAllowed        bool
	DefaultMinimumStay int
	ExternalRef        string // identifier on the remote property-management system
}

type Repository interface {
	ByID(ctx context.Context, id UnitID) (*Unit, error)
	Save(ctx context.Context, unit *Unit) error
	List(ctx context.Context) ([]*Unit, error)
}

func (u *Unit) Validate() error {
	if strings.TrimSpace(string(u.ID)) == "" {
		return ErrInvalidUnit
	}
	if len(u.Currency) != 3 {
		return ErrInvalidUnit
	}
	if u.GuestsLimit <= 0 {
		return ErrInvalidUnit
	}
	return nil
}
