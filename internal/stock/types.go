package stock

import (
	"strings"

	"github.com/angelmondragon/stockledger/internal/allocation"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// ItemView is a catalog row together with its derived quantities.
type ItemView struct {
	Item         models.Item
	ReservedQty  int
	AvailableQty int
}

func newItemView(item models.Item, reserved int) ItemView {
	return ItemView{
		Item:         item,
		ReservedQty:  reserved,
		AvailableQty: max(0, item.CurrentQty-reserved),
	}
}

// ReserveResult reports whether every line of an order was reserved. On
// failure Failures holds one message per failing line and nothing was written.
type ReserveResult struct {
	OK          bool
	Failures    []string
	Allocations []models.Allocation
}

// OrderResult lists what ship or release touched. Both slices are empty when
// the order had nothing reserved.
type OrderResult struct {
	OrderID      string
	Allocations  []models.Allocation
	Transactions []models.StockTransaction
}

// AdjustInput describes a signed quantity change.
type AdjustInput struct {
	SKU       string
	QtyChange int
	Type      enums.TransactionType
	Reason    string
}

func (in *AdjustInput) validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if !in.Type.IsQuantityMovement() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "type %q cannot adjust stock", in.Type)
	}
	return nil
}

// PhysicalCountInput records the result of a cycle count.
type PhysicalCountInput struct {
	SKU         string
	PhysicalQty int
	Reason      string
}

func (in *PhysicalCountInput) validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if in.PhysicalQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "physical qty must be >= 0")
	}
	return nil
}

// MoveInput relocates an item to a new zone/rack/bin.
type MoveInput struct {
	SKU    string
	Zone   string
	Rack   string
	Bin    string
	Reason string
}

func (in *MoveInput) validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Zone = strings.TrimSpace(in.Zone)
	in.Rack = strings.TrimSpace(in.Rack)
	in.Bin = strings.TrimSpace(in.Bin)
	if in.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if in.Zone == "" || in.Rack == "" || in.Bin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "zone, rack and bin are required")
	}
	return nil
}

func (in MoveInput) location() models.Location {
	return models.Location{Zone: in.Zone, Rack: in.Rack, Bin: in.Bin}
}

// Line is re-exported so callers only import this package.
type Line = allocation.Line

func normalizeOrderID(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return orderID, nil
}
