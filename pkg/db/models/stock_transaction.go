package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// StockTransaction is an immutable ledger entry describing one stock movement
// for one SKU. Seq gives the strict append order.
type StockTransaction struct {
	Seq          int64                 `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           uuid.UUID             `gorm:"column:id;type:uuid;uniqueIndex;not null"`
	Date         time.Time             `gorm:"column:date;not null"`
	SKU          string                `gorm:"column:sku;not null;index"`
	Name         string                `gorm:"column:name;not null"`
	Type         enums.TransactionType `gorm:"column:type;type:text;not null"`
	QtyChange    int                   `gorm:"column:qty_change;not null"`
	BeforeQty    int                   `gorm:"column:before_qty;not null"`
	AfterQty     int                   `gorm:"column:after_qty;not null"`
	Reason       string                `gorm:"column:reason"`
	OrderID      string                `gorm:"column:order_id;index"`
	FromLocation Location              `gorm:"embedded;embeddedPrefix:from_"`
	ToLocation   Location              `gorm:"embedded;embeddedPrefix:to_"`
}

func (StockTransaction) TableName() string {
	return "stock_transactions"
}
