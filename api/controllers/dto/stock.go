// Package dto holds the JSON shapes returned by the stock controllers.
package dto

import (
	"time"

	"github.com/angelmondragon/stockledger/internal/ledger"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/db/models"
)

type LocationResponse struct {
	Zone  string `json:"zone"`
	Rack  string `json:"rack"`
	Bin   string `json:"bin"`
	Label string `json:"label"`
}

func NewLocation(loc models.Location) *LocationResponse {
	if loc.IsZero() {
		return nil
	}
	return &LocationResponse{Zone: loc.Zone, Rack: loc.Rack, Bin: loc.Bin, Label: loc.String()}
}

type ItemResponse struct {
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	Location     *LocationResponse `json:"location"`
	CurrentQty   int               `json:"current_qty"`
	SafetyQty    int               `json:"safety_qty"`
	ReservedQty  int               `json:"reserved_qty"`
	AvailableQty int               `json:"available_qty"`
	Status       string            `json:"status"`
	LastMovedAt  time.Time         `json:"last_moved_at"`
}

func NewItem(view stock.ItemView) ItemResponse {
	return ItemResponse{
		SKU:          view.Item.SKU,
		Name:         view.Item.Name,
		Location:     NewLocation(view.Item.Location),
		CurrentQty:   view.Item.CurrentQty,
		SafetyQty:    view.Item.SafetyQty,
		ReservedQty:  view.ReservedQty,
		AvailableQty: view.AvailableQty,
		Status:       string(view.Item.Status),
		LastMovedAt:  view.Item.LastMovedAt,
	}
}

func NewItems(views []stock.ItemView) []ItemResponse {
	out := make([]ItemResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewItem(v))
	}
	return out
}

type TransactionResponse struct {
	ID           string            `json:"id"`
	Seq          int64             `json:"seq"`
	Date         time.Time         `json:"date"`
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	QtyChange    int               `json:"qty_change"`
	BeforeQty    int               `json:"before_qty"`
	AfterQty     int               `json:"after_qty"`
	Reason       string            `json:"reason,omitempty"`
	OrderID      string            `json:"order_id,omitempty"`
	FromLocation *LocationResponse `json:"from_location,omitempty"`
	ToLocation   *LocationResponse `json:"to_location,omitempty"`
}

func NewTransaction(tx models.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:           tx.ID.String(),
		Seq:          tx.Seq,
		Date:         tx.Date,
		SKU:          tx.SKU,
		Name:         tx.Name,
		Type:         string(tx.Type),
		QtyChange:    tx.QtyChange,
		BeforeQty:    tx.BeforeQty,
		AfterQty:     tx.AfterQty,
		Reason:       tx.Reason,
		OrderID:      tx.OrderID,
		FromLocation: NewLocation(tx.FromLocation),
		ToLocation:   NewLocation(tx.ToLocation),
	}
}

func NewTransactions(rows []models.StockTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewTransaction(row))
	}
	return out
}

type TransactionPage struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextCursor   string                `json:"next_cursor,omitempty"`
}

func NewTransactionPage(page *ledger.Page) TransactionPage {
	if page == nil {
		return TransactionPage{Transactions: []TransactionResponse{}}
	}
	return TransactionPage{
		Transactions: NewTransactions(page.Entries),
		NextCursor:   page.NextCursor,
	}
}

type AllocationResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewAllocations(rows []models.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, AllocationResponse{
			ID:        row.ID.String(),
			OrderID:   row.OrderID,
			SKU:       row.SKU,
			Name:      row.Name,
			Qty:       row.Qty,
			Status:    string(row.Status),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out
}

// ReserveResponse is returned with 200 when every line was reserved and 409
// when any line failed.
type ReserveResponse struct {
	OK          bool                 `json:"ok"`
	Failures    []string             `json:"failures,omitempty"`
	Allocations []AllocationResponse `json:"allocations,omitempty"`
}

func NewReserve(res *stock.ReserveResult) ReserveResponse {
	return ReserveResponse{
		OK:          res.OK,
		Failures:    res.Failures,
		Allocations: NewAllocations(res.Allocations),
	}
}

type OrderResponse struct {
	OrderID      string                `json:"order_id"`
	Allocations  []AllocationResponse  `json:"allocations"`
	Transactions []TransactionResponse `json:"transactions"`
}

func NewOrder(res *stock.OrderResult) OrderResponse {
	return OrderResponse{
		OrderID:      res.OrderID,
		Allocations:  NewAllocations(res.Allocations),
		Transactions: NewTransactions(res.Transactions),
	}
}
