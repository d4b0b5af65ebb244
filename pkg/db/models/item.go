package models

import (
	"strings"
	"time"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// Location is the zone/rack/bin triple that addresses a storage slot.
type Location struct {
	Zone string `gorm:"column:zone"`
	Rack string `gorm:"column:rack"`
	Bin  string `gorm:"column:bin"`
}

// IsZero reports whether no part of the location is set.
func (l Location) IsZero() bool {
	return l.Zone == "" && l.Rack == "" && l.Bin == ""
}

// String renders the location as ZONE-RACK-BIN.
func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return strings.Join([]string{l.Zone, l.Rack, l.Bin}, "-")
}

// Item is the catalog row for a single SKU.
type Item struct {
	SKU         string           `gorm:"column:sku;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Location    Location         `gorm:"embedded"`
	CurrentQty  int              `gorm:"column:current_qty;not null;default:0"`
	SafetyQty   int              `gorm:"column:safety_qty;not null;default:0"`
	Status      enums.ItemStatus `gorm:"column:status;type:text;not null"`
	LastMovedAt time.Time        `gorm:"column:last_moved_at;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string {
	return "items"
}
