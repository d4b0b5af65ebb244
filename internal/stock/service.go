package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockledger/internal/allocation"
	"github.com/angelmondragon/stockledger/internal/catalog"
	"github.com/angelmondragon/stockledger/internal/ledger"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/lock"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	"github.com/angelmondragon/stockledger/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the only entry point that mutates items, allocations and the
// ledger. Every mutation holds the stock lock and commits in one transaction.
type Service interface {
	Register(ctx context.Context, input catalog.RegisterInput) (*models.Item, error)
	Find(ctx context.Context, sku string) (*ItemView, bool, error)
	List(ctx context.Context) ([]ItemView, error)
	ReservedQty(ctx context.Context, sku string) (int, error)
	AvailableQty(ctx context.Context, sku string) (int, error)

	Reserve(ctx context.Context, orderID string, lines []Line) (*ReserveResult, error)
	Ship(ctx context.Context, orderID string) (*OrderResult, error)
	Release(ctx context.Context, orderID, reason string) (*OrderResult, error)
	AdjustStock(ctx context.Context, input AdjustInput) (*models.StockTransaction, error)
	SetPhysicalCount(ctx context.Context, input PhysicalCountInput) (*models.StockTransaction, error)
	MoveLocation(ctx context.Context, input MoveInput) (*models.StockTransaction, error)

	Ledger(ctx context.Context, sku string, params pagination.Params) (*ledger.Page, error)
	Transactions(ctx context.Context, params pagination.Params) (*ledger.Page, error)
	Allocations(ctx context.Context, orderID string) ([]models.Allocation, error)
}

// ServiceParams wires the facade.
type ServiceParams struct {
	Tx          txRunner
	Items       *catalog.Repository
	Ledger      ledger.Service
	Allocations *allocation.Repository
	Locker      lock.Locker
	Logger      *logger.Logger
	Metrics     *metrics.StockMetrics
	// Now defaults to UTC wall time.
	Now func() time.Time
}

type service struct {
	tx          txRunner
	items       *catalog.Repository
	ledger      ledger.Service
	allocations *allocation.Repository
	locker      lock.Locker
	logg        *logger.Logger
	metrics     *metrics.StockMetrics
	now         func() time.Time
}

// NewService builds the stock operations facade.
func NewService(p ServiceParams) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Items == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if p.Allocations == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if p.Locker == nil {
		return nil, fmt.Errorf("stock locker required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:          p.Tx,
		items:       p.Items,
		ledger:      p.Ledger,
		allocations: p.Allocations,
		locker:      p.Locker,
		logg:        p.Logger,
		metrics:     p.Metrics,
		now:         p.Now,
	}, nil
}

// txScope holds the repositories bound to one transaction.
type txScope struct {
	items       *catalog.Repository
	ledger      ledger.Service
	allocations *allocation.Repository
}

func (s *service) scope(tx *gorm.DB) txScope {
	return txScope{
		items:       s.items.WithTx(tx),
		ledger:      s.ledger.WithTx(tx),
		allocations: s.allocations.WithTx(tx),
	}
}

// mutate runs fn under the stock lock inside one transaction and records the
// outcome fn reports.
func (s *service) mutate(ctx context.Context, op string, fn func(sc txScope) (string, error)) error {
	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		s.metrics.Observe(op, outcome, time.Since(start))
	}()

	unlocker, err := s.locker.Acquire(ctx)
	if err != nil {
		outcome = metrics.OutcomeError
		s.logg.Error(ctx, "stock."+op+".lock_failed", err)
		return err
	}
	defer func() {
		if rerr := unlocker.Release(context.WithoutCancel(ctx)); rerr != nil {
			s.logg.Error(ctx, "stock."+op+".unlock_failed", rerr)
		}
	}()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var ferr error
		outcome, ferr = fn(s.scope(tx))
		return ferr
	})
	if err != nil {
		outcome = classify(err)
		if outcome == metrics.OutcomeError {
			s.logg.Error(ctx, "stock."+op+".failed", err)
		}
		return err
	}
	return nil
}

func classify(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func dependency(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func (s *service) Register(ctx context.Context, input catalog.RegisterInput) (*models.Item, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSKU(ctx, input.SKU)

	var created *models.Item
	err := s.mutate(ctx, "register", func(sc txScope) (string, error) {
		existing, err := sc.items.FindBySKU(ctx, input.SKU)
		if err != nil {
			return "", dependency(err, "db: find item")
		}
		if existing != nil {
			return "", pkgerrors.Newf(pkgerrors.CodeConflict, "sku %s already registered", input.SKU)
		}

		item := catalog.NewItem(input, s.now())
		if err := sc.items.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return "", pkgerrors.Newf(pkgerrors.CodeConflict, "sku %s already registered", input.SKU)
			}
			return "", dependency(err, "db: insert item")
		}
		created = item
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"current_qty": created.CurrentQty,
		"status":      created.Status,
	}), "stock.register")
	return created, nil
}

func (s *service) Find(ctx context.Context, sku string) (*ItemView, bool, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, false, nil
	}

	var view *ItemView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		item, err := sc.items.FindBySKU(ctx, sku)
		if err != nil {
			return dependency(err, "db: find item")
		}
		if item == nil {
			return nil
		}
		reserved, err := sc.allocations.ReservedQty(ctx, sku)
		if err != nil {
			return dependency(err, "db: reserved qty")
		}
		v := newItemView(*item, reserved)
		view = &v
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return view, view != nil, nil
}

func (s *service) List(ctx context.Context) ([]ItemView, error) {
	var views []ItemView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		items, err := sc.items.List(ctx)
		if err != nil {
			return dependency(err, "db: list items")
		}
		totals, err := sc.allocations.ReservedTotals(ctx, nil)
		if err != nil {
			return dependency(err, "db: reserved totals")
		}
		views = make([]ItemView, 0, len(items))
		for _, item := range items {
			views = append(views, newItemView(item, totals[item.SKU]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *service) ReservedQty(ctx context.Context, sku string) (int, error) {
	qty, err := s.allocations.ReservedQty(ctx, strings.TrimSpace(sku))
	if err != nil {
		return 0, dependency(err, "db: reserved qty")
	}
	return qty, nil
}

// AvailableQty is zero for unknown SKUs.
func (s *service) AvailableQty(ctx context.Context, sku string) (int, error) {
	view, found, err := s.Find(ctx, sku)
	if err != nil || !found {
		return 0, err
	}
	return view.AvailableQty, nil
}

func (s *service) Reserve(ctx context.Context, orderID string, lines []Line) (*ReserveResult, error) {
	orderID, err := normalizeOrderID(orderID)
	if err != nil {
		return nil, err
	}
	merged, err := allocation.NormalizeLines(lines)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	skus := make([]string, 0, len(merged))
	for _, line := range merged {
		skus = append(skus, line.SKU)
	}

	result := &ReserveResult{}
	err = s.mutate(ctx, "reserve", func(sc txScope) (string, error) {
		items, err := sc.items.FindBySKUs(ctx, skus)
		if err != nil {
			return "", dependency(err, "db: load items")
		}
		totals, err := sc.allocations.ReservedTotals(ctx, skus)
		if err != nil {
			return "", dependency(err, "db: reserved totals")
		}
		existing, err := sc.allocations.ListByOrder(ctx, orderID, enums.AllocationStatusReserved)
		if err != nil {
			return "", dependency(err, "db: order allocations")
		}

		plan := allocation.BuildPlan(merged, allocation.Snapshot{
			Items:            items,
			ReservedTotals:   totals,
			ReservedForOrder: allocation.SumBySKU(existing, enums.AllocationStatusReserved),
		})
		if !plan.OK() {
			result.Failures = plan.Failures
			return metrics.OutcomeRejected, nil
		}
		result.OK = true
		if len(plan.Reservations) == 0 {
			return metrics.OutcomeNoop, nil
		}

		now := s.now()
		rows := make([]models.Allocation, 0, len(plan.Reservations))
		for _, r := range plan.Reservations {
			id, err := uuid.NewV7()
			if err != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate allocation id")
			}
			rows = append(rows, models.Allocation{
				ID:        id,
				OrderID:   orderID,
				SKU:       r.SKU,
				Name:      r.Name,
				Qty:       r.Qty,
				Status:    enums.AllocationStatusReserved,
				CreatedAt: now,
			})
		}
		if err := sc.allocations.CreateBatch(ctx, rows); err != nil {
			return "", dependency(err, "db: insert allocations")
		}

		for _, row := range rows {
			onHand := items[row.SKU].CurrentQty
			if _, err := sc.ledger.Append(ctx, ledger.AppendInput{
				Date:      now,
				SKU:       row.SKU,
				Name:      row.Name,
				Type:      enums.TransactionTypeAllocation,
				BeforeQty: onHand,
				AfterQty:  onHand,
				Reason:    fmt.Sprintf("allocation reserved for order %s (qty %d)", orderID, row.Qty),
				OrderID:   orderID,
			}); err != nil {
				return "", err
			}
		}
		result.Allocations = rows
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	if !result.OK {
		s.logg.Warn(s.logg.WithField(ctx, "failures", result.Failures), "stock.reserve.rejected")
		return result, nil
	}
	s.logg.Info(s.logg.WithField(ctx, "allocations", len(result.Allocations)), "stock.reserve")
	return result, nil
}

func (s *service) Ship(ctx context.Context, orderID string) (*OrderResult, error) {
	orderID, err := normalizeOrderID(orderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	result := &OrderResult{OrderID: orderID}
	err = s.mutate(ctx, "ship", func(sc txScope) (string, error) {
		reserved, err := sc.allocations.ListByOrder(ctx, orderID, enums.AllocationStatusReserved)
		if err != nil {
			return "", dependency(err, "db: order allocations")
		}
		if len(reserved) == 0 {
			return metrics.OutcomeNoop, nil
		}

		now := s.now()
		for _, group := range groupBySKU(reserved) {
			item, err := sc.items.FindBySKU(ctx, group.sku)
			if err != nil {
				return "", dependency(err, "db: find item")
			}
			if item == nil {
				return "", pkgerrors.Newf(pkgerrors.CodeInternal, "allocation references unregistered sku %s", group.sku)
			}

			before, after := catalog.SetQuantity(item, -group.qty, now)
			if err := sc.items.Update(ctx, item); err != nil {
				return "", dependency(err, "db: update item")
			}
			entry, err := sc.ledger.Append(ctx, ledger.AppendInput{
				Date:      now,
				SKU:       item.SKU,
				Name:      item.Name,
				Type:      enums.TransactionTypeOutbound,
				QtyChange: -group.qty,
				BeforeQty: before,
				AfterQty:  after,
				Reason:    fmt.Sprintf("shipped for order %s", orderID),
				OrderID:   orderID,
			})
			if err != nil {
				return "", err
			}
			result.Transactions = append(result.Transactions, *entry)
		}

		if err := s.transition(ctx, sc, reserved, enums.AllocationStatusShipped, now); err != nil {
			return "", err
		}
		result.Allocations = reserved
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "allocations", len(result.Allocations)), "stock.ship")
	return result, nil
}

func (s *service) Release(ctx context.Context, orderID, reason string) (*OrderResult, error) {
	orderID, err := normalizeOrderID(orderID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = fmt.Sprintf("released for order %s", orderID)
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	result := &OrderResult{OrderID: orderID}
	err = s.mutate(ctx, "release", func(sc txScope) (string, error) {
		reserved, err := sc.allocations.ListByOrder(ctx, orderID, enums.AllocationStatusReserved)
		if err != nil {
			return "", dependency(err, "db: order allocations")
		}
		if len(reserved) == 0 {
			return metrics.OutcomeNoop, nil
		}

		now := s.now()
		if err := s.transition(ctx, sc, reserved, enums.AllocationStatusReleased, now); err != nil {
			return "", err
		}

		onHand := make(map[string]int)
		for _, a := range reserved {
			qty, ok := onHand[a.SKU]
			if !ok {
				item, err := sc.items.FindBySKU(ctx, a.SKU)
				if err != nil {
					return "", dependency(err, "db: find item")
				}
				if item != nil {
					qty = item.CurrentQty
				}
				onHand[a.SKU] = qty
			}
			entry, err := sc.ledger.Append(ctx, ledger.AppendInput{
				Date:      now,
				SKU:       a.SKU,
				Name:      a.Name,
				Type:      enums.TransactionTypeAllocation,
				BeforeQty: qty,
				AfterQty:  qty,
				Reason:    reason,
				OrderID:   orderID,
			})
			if err != nil {
				return "", err
			}
			result.Transactions = append(result.Transactions, *entry)
		}
		result.Allocations = reserved
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "allocations", len(result.Allocations)), "stock.release")
	return result, nil
}

// transition moves allocations out of reserved and mirrors the new status on
// the in-memory rows.
func (s *service) transition(ctx context.Context, sc txScope, rows []models.Allocation, next enums.AllocationStatus, now time.Time) error {
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	affected, err := sc.allocations.Transition(ctx, ids, next, now)
	if err != nil {
		return dependency(err, "db: transition allocations")
	}
	if affected != int64(len(rows)) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "expected %d reserved allocations, updated %d", len(rows), affected)
	}
	for i := range rows {
		rows[i].Status = next
		rows[i].UpdatedAt = now
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustInput) (*models.StockTransaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSKU(ctx, input.SKU)

	var entry *models.StockTransaction
	err := s.mutate(ctx, "adjust", func(sc txScope) (string, error) {
		item, err := s.loadItem(ctx, sc, input.SKU)
		if err != nil {
			return "", err
		}
		entry, err = s.applyAdjustment(ctx, sc, item, input.QtyChange, input.Type, input.Reason)
		if err != nil {
			return "", err
		}
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"type":       entry.Type,
		"qty_change": entry.QtyChange,
		"after_qty":  entry.AfterQty,
	}), "stock.adjust")
	return entry, nil
}

// SetPhysicalCount returns a nil entry when the count already matches.
func (s *service) SetPhysicalCount(ctx context.Context, input PhysicalCountInput) (*models.StockTransaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSKU(ctx, input.SKU)

	var entry *models.StockTransaction
	err := s.mutate(ctx, "physical_count", func(sc txScope) (string, error) {
		item, err := s.loadItem(ctx, sc, input.SKU)
		if err != nil {
			return "", err
		}
		delta := input.PhysicalQty - item.CurrentQty
		if delta == 0 {
			return metrics.OutcomeNoop, nil
		}
		entry, err = s.applyAdjustment(ctx, sc, item, delta, enums.TransactionTypeAdjustment, input.Reason)
		if err != nil {
			return "", err
		}
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	if entry == nil {
		s.logg.Debug(ctx, "stock.physical_count.unchanged")
		return nil, nil
	}
	s.logg.Info(s.logg.WithField(ctx, "qty_change", entry.QtyChange), "stock.physical_count")
	return entry, nil
}

func (s *service) MoveLocation(ctx context.Context, input MoveInput) (*models.StockTransaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSKU(ctx, input.SKU)

	var entry *models.StockTransaction
	err := s.mutate(ctx, "move", func(sc txScope) (string, error) {
		item, err := s.loadItem(ctx, sc, input.SKU)
		if err != nil {
			return "", err
		}

		now := s.now()
		to := input.location()
		from := catalog.Relocate(item, to, now)
		if err := sc.items.Update(ctx, item); err != nil {
			return "", dependency(err, "db: update item")
		}
		entry, err = sc.ledger.Append(ctx, ledger.AppendInput{
			Date:      now,
			SKU:       item.SKU,
			Name:      item.Name,
			Type:      enums.TransactionTypeRelocation,
			BeforeQty: item.CurrentQty,
			AfterQty:  item.CurrentQty,
			Reason:    input.Reason,
			From:      from,
			To:        to,
		})
		if err != nil {
			return "", err
		}
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from": entry.FromLocation.String(),
		"to":   entry.ToLocation.String(),
	}), "stock.move")
	return entry, nil
}

func (s *service) loadItem(ctx context.Context, sc txScope, sku string) (*models.Item, error) {
	item, err := sc.items.FindBySKU(ctx, sku)
	if err != nil {
		return nil, dependency(err, "db: find item")
	}
	if item == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "sku %s not registered", sku)
	}
	return item, nil
}

// applyAdjustment floors the quantity at zero and records the clamped delta's
// before/after pair under the requested type.
func (s *service) applyAdjustment(ctx context.Context, sc txScope, item *models.Item, delta int, kind enums.TransactionType, reason string) (*models.StockTransaction, error) {
	now := s.now()
	before, after := catalog.SetQuantity(item, delta, now)
	if err := sc.items.Update(ctx, item); err != nil {
		return nil, dependency(err, "db: update item")
	}
	return sc.ledger.Append(ctx, ledger.AppendInput{
		Date:      now,
		SKU:       item.SKU,
		Name:      item.Name,
		Type:      kind,
		QtyChange: delta,
		BeforeQty: before,
		AfterQty:  after,
		Reason:    reason,
	})
}

func (s *service) Ledger(ctx context.Context, sku string, params pagination.Params) (*ledger.Page, error) {
	return s.ledger.Query(ctx, sku, params)
}

func (s *service) Transactions(ctx context.Context, params pagination.Params) (*ledger.Page, error) {
	return s.ledger.List(ctx, params)
}

func (s *service) Allocations(ctx context.Context, orderID string) ([]models.Allocation, error) {
	orderID, err := normalizeOrderID(orderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.allocations.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dependency(err, "db: order allocations")
	}
	return rows, nil
}

type skuQty struct {
	sku string
	qty int
}

// groupBySKU totals allocation qty per SKU in first-seen order.
func groupBySKU(rows []models.Allocation) []skuQty {
	var out []skuQty
	index := make(map[string]int)
	for _, row := range rows {
		if i, ok := index[row.SKU]; ok {
			out[i].qty += row.Qty
			continue
		}
		index[row.SKU] = len(out)
		out = append(out, skuQty{sku: row.SKU, qty: row.Qty})
	}
	return out
}
