package ledger

import (
	"context"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"gorm.io/gorm"
)

// Query narrows a ledger read. Entries are always returned newest-first.
type Query struct {
	SKU     string
	OrderID string
	// BeforeSeq, when positive, limits results to entries older than it.
	BeforeSeq int64
	Limit     int
}

// Repository manages persistence for stock transactions. It only ever inserts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StockTransaction) error
	List(ctx context.Context, q Query) ([]models.StockTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, q Query) ([]models.StockTransaction, error) {
	tx := r.db.WithContext(ctx).Model(&models.StockTransaction{})
	if q.SKU != "" {
		tx = tx.Where("sku = ?", q.SKU)
	}
	if q.OrderID != "" {
		tx = tx.Where("order_id = ?", q.OrderID)
	}
	if q.BeforeSeq > 0 {
		tx = tx.Where("seq < ?", q.BeforeSeq)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var entries []models.StockTransaction
	if err := tx.Order("seq DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
