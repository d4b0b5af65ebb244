package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records and reads stock transactions.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, input AppendInput) (*models.StockTransaction, error)
	Query(ctx context.Context, sku string, params pagination.Params) (*Page, error)
	List(ctx context.Context, params pagination.Params) (*Page, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.StockTransaction, error)
}

// AppendInput captures the immutable data a ledger entry requires.
type AppendInput struct {
	Date      time.Time
	SKU       string
	Name      string
	Type      enums.TransactionType
	QtyChange int
	BeforeQty int
	AfterQty  int
	Reason    string
	OrderID   string
	From      models.Location
	To        models.Location
}

// Page is one newest-first slice of the ledger.
type Page struct {
	Entries    []models.StockTransaction
	NextCursor string
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.StockTransaction, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate transaction id")
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	entry := &models.StockTransaction{
		ID:           id,
		Date:         date,
		SKU:          input.SKU,
		Name:         input.Name,
		Type:         input.Type,
		QtyChange:    input.QtyChange,
		BeforeQty:    input.BeforeQty,
		AfterQty:     input.AfterQty,
		Reason:       strings.TrimSpace(input.Reason),
		OrderID:      input.OrderID,
		FromLocation: input.From,
		ToLocation:   input.To,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock transaction")
	}
	return entry, nil
}

func (s *service) Query(ctx context.Context, sku string, params pagination.Params) (*Page, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	return s.page(ctx, Query{SKU: sku}, params)
}

func (s *service) List(ctx context.Context, params pagination.Params) (*Page, error) {
	return s.page(ctx, Query{}, params)
}

func (s *service) ListByOrder(ctx context.Context, orderID string) ([]models.StockTransaction, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	entries, err := s.repo.List(ctx, Query{OrderID: orderID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list order transactions")
	}
	return entries, nil
}

func (s *service) page(ctx context.Context, q Query, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		q.BeforeSeq = cursor.Seq
	}
	limit := pagination.NormalizeLimit(params.Limit)
	q.Limit = pagination.LimitWithBuffer(params.Limit)

	entries, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock transactions")
	}

	page := &Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Seq: page.Entries[limit-1].Seq})
	}
	return page, nil
}

func validateAppend(input AppendInput) error {
	if strings.TrimSpace(input.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", input.Type)
	}
	if input.BeforeQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "before qty must be >= 0")
	}
	if want := max(0, input.BeforeQty+input.QtyChange); input.AfterQty != want {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "after qty %d does not match before %d + change %d", input.AfterQty, input.BeforeQty, input.QtyChange)
	}

	switch input.Type {
	case enums.TransactionTypeRelocation:
		if input.QtyChange != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "relocation must not change quantity")
		}
		if input.From.IsZero() || input.To.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "relocation requires from and to locations")
		}
	case enums.TransactionTypeAllocation:
		if input.QtyChange != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "allocation entries must not change quantity")
		}
	}
	if input.Type != enums.TransactionTypeRelocation && (!input.From.IsZero() || !input.To.IsZero()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "locations are only recorded on relocations")
	}
	return nil
}
