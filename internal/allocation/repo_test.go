package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stockledger/pkg/db/dbtest"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/google/uuid"
)

func newAllocation(orderID, sku string, qty int, status enums.AllocationStatus, at time.Time) models.Allocation {
	return models.Allocation{
		ID:        uuid.Must(uuid.NewV7()),
		OrderID:   orderID,
		SKU:       sku,
		Name:      sku,
		Qty:       qty,
		Status:    status,
		CreatedAt: at,
	}
}

func TestRepositoryReservedTotalsAndTransitions(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	seed := []models.Allocation{
		newAllocation("SO-1", "SKU-1", 30, enums.AllocationStatusReserved, now),
		newAllocation("SO-1", "SKU-2", 5, enums.AllocationStatusReserved, now.Add(time.Second)),
		newAllocation("SO-2", "SKU-1", 10, enums.AllocationStatusReserved, now.Add(2*time.Second)),
		newAllocation("SO-3", "SKU-1", 99, enums.AllocationStatusShipped, now.Add(3*time.Second)),
	}
	if err := repo.CreateBatch(ctx, seed); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	totals, err := repo.ReservedTotals(ctx, nil)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["SKU-1"] != 40 || totals["SKU-2"] != 5 {
		t.Fatalf("unexpected totals %v", totals)
	}

	qty, err := repo.ReservedQty(ctx, "SKU-404")
	if err != nil || qty != 0 {
		t.Fatalf("unknown sku should have zero reserved, got %d err=%v", qty, err)
	}

	reserved, err := repo.ListByOrder(ctx, "SO-1", enums.AllocationStatusReserved)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reserved) != 2 || reserved[0].SKU != "SKU-1" {
		t.Fatalf("unexpected order allocations %+v", reserved)
	}

	ids := []uuid.UUID{reserved[0].ID, reserved[1].ID, seed[3].ID}
	affected, err := repo.Transition(ctx, ids, enums.AllocationStatusShipped, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if affected != 2 {
		t.Fatalf("terminal rows must be skipped, affected=%d", affected)
	}

	qty, err = repo.ReservedQty(ctx, "SKU-1")
	if err != nil || qty != 10 {
		t.Fatalf("expected SO-2 reservation only, got %d err=%v", qty, err)
	}

	all, err := repo.ListByOrder(ctx, "SO-1")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for _, a := range all {
		if a.Status != enums.AllocationStatusShipped {
			t.Fatalf("expected shipped, got %+v", a)
		}
	}

	if _, err := repo.Transition(ctx, ids, enums.AllocationStatusReserved, now); err == nil {
		t.Fatal("expected illegal transition error")
	}
}
