package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// Allocation reserves on-hand stock of one SKU for one order.
type Allocation struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   string                 `gorm:"column:order_id;not null;index:idx_allocations_order_sku,priority:1"`
	SKU       string                 `gorm:"column:sku;not null;index:idx_allocations_order_sku,priority:2;index:idx_allocations_sku_status,priority:1"`
	Name      string                 `gorm:"column:name;not null"`
	Qty       int                    `gorm:"column:qty;not null"`
	Status    enums.AllocationStatus `gorm:"column:status;type:text;not null;index:idx_allocations_sku_status,priority:2"`
	CreatedAt time.Time              `gorm:"column:created_at;not null"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Allocation) TableName() string {
	return "allocations"
}
