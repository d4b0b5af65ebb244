package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists allocations. Rows are never deleted.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateBatch inserts all allocations in one statement.
func (r *Repository) CreateBatch(ctx context.Context, allocations []models.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}

// ListByOrder returns the order's allocations oldest-first, optionally
// filtered to the given statuses.
func (r *Repository) ListByOrder(ctx context.Context, orderID string, statuses ...enums.AllocationStatus) ([]models.Allocation, error) {
	tx := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		tx = tx.Where("status IN ?", statuses)
	}
	var allocations []models.Allocation
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

type skuTotal struct {
	SKU   string `gorm:"column:sku"`
	Total int    `gorm:"column:total"`
}

// ReservedTotals sums reserved qty per SKU across every order. An empty skus
// slice covers the whole table.
func (r *Repository) ReservedTotals(ctx context.Context, skus []string) (map[string]int, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Select("sku, COALESCE(SUM(qty), 0) AS total").
		Where("status = ?", enums.AllocationStatusReserved)
	if len(skus) > 0 {
		tx = tx.Where("sku IN ?", skus)
	}

	var rows []skuTotal
	if err := tx.Group("sku").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.SKU] = row.Total
	}
	return out, nil
}

// ReservedQty sums reserved qty for one SKU.
func (r *Repository) ReservedQty(ctx context.Context, sku string) (int, error) {
	totals, err := r.ReservedTotals(ctx, []string{sku})
	if err != nil {
		return 0, err
	}
	return totals[sku], nil
}

// Transition moves the given allocations out of reserved. Rows already in a
// terminal state are left untouched; the affected row count is returned.
func (r *Repository) Transition(ctx context.Context, ids []uuid.UUID, next enums.AllocationStatus, now time.Time) (int64, error) {
	if !enums.AllocationStatusReserved.CanTransitionTo(next) {
		return 0, fmt.Errorf("illegal allocation transition to %q", next)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Where("id IN ? AND status = ?", ids, enums.AllocationStatusReserved).
		Updates(map[string]any{"status": next, "updated_at": now})
	return res.RowsAffected, res.Error
}
