package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists catalog items.
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

// Create inserts a new item row.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindBySKU returns the item, or nil when the SKU is not registered.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("sku = ?", sku).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindBySKUs loads every registered item among skus, keyed by SKU.
func (r *Repository) FindBySKUs(ctx context.Context, skus []string) (map[string]models.Item, error) {
	out := make(map[string]models.Item, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.SKU] = item
	}
	return out, nil
}

// Update persists every column of the item.
func (r *Repository) Update(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// List returns the catalog ordered by SKU.
func (r *Repository) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).Order("sku ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
