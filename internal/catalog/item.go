package catalog

import (
	"strings"
	"time"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// RegisterInput carries the master data for a new SKU.
type RegisterInput struct {
	SKU        string
	Name       string
	Zone       string
	Rack       string
	Bin        string
	CurrentQty int
	SafetyQty  int
}

// Validate normalises whitespace and rejects unusable master data.
func (in *RegisterInput) Validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.Zone = strings.TrimSpace(in.Zone)
	in.Rack = strings.TrimSpace(in.Rack)
	in.Bin = strings.TrimSpace(in.Bin)

	if in.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if in.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if in.CurrentQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "current_qty must be >= 0")
	}
	if in.SafetyQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "safety_qty must be >= 0")
	}
	return nil
}

// NewItem builds the catalog row for a validated input. Status is always
// derived, never taken from the caller.
func NewItem(in RegisterInput, now time.Time) *models.Item {
	return &models.Item{
		SKU:         in.SKU,
		Name:        in.Name,
		Location:    models.Location{Zone: in.Zone, Rack: in.Rack, Bin: in.Bin},
		CurrentQty:  in.CurrentQty,
		SafetyQty:   in.SafetyQty,
		Status:      StatusFor(in.CurrentQty, in.SafetyQty),
		LastMovedAt: now,
	}
}

// SetQuantity floors the new quantity at zero, refreshes status and the
// movement timestamp, and returns the before/after pair that was applied.
func SetQuantity(item *models.Item, delta int, now time.Time) (before, after int) {
	before = item.CurrentQty
	after = max(0, before+delta)
	item.CurrentQty = after
	Touch(item, now)
	return before, after
}

// Relocate moves the item and returns its previous location.
func Relocate(item *models.Item, to models.Location, now time.Time) models.Location {
	from := item.Location
	item.Location = to
	Touch(item, now)
	return from
}

// Touch recomputes derived fields after any quantity or location mutation.
func Touch(item *models.Item, now time.Time) {
	item.Status = StatusFor(item.CurrentQty, item.SafetyQty)
	item.LastMovedAt = now
}
