package allocation

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// Line is one requested order line.
type Line struct {
	SKU  string
	Name string
	Qty  int
}

// Reservation is the quantity a line still needs reserved for its order.
type Reservation struct {
	SKU  string
	Name string
	Qty  int
}

// Plan is the outcome of checking every line of a reserve call. When any line
// fails, Reservations is empty so nothing gets committed.
type Plan struct {
	Reservations []Reservation
	Failures     []string
}

// OK reports whether every line can be reserved.
func (p Plan) OK() bool {
	return len(p.Failures) == 0
}

// Snapshot is the state a plan is evaluated against, read once per call.
type Snapshot struct {
	Items map[string]models.Item
	// ReservedTotals holds reserved qty per SKU across every order.
	ReservedTotals map[string]int
	// ReservedForOrder holds reserved qty per SKU for the order being planned.
	ReservedForOrder map[string]int
}

// NormalizeLines validates the request and merges repeated SKUs, summing
// their quantities and keeping the first line's name and position.
func NormalizeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	merged := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for i, line := range lines {
		sku := strings.TrimSpace(line.SKU)
		if sku == "" {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: sku is required", i+1)
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: qty must be > 0", i+1)
		}
		if pos, ok := index[sku]; ok {
			merged[pos].Qty += line.Qty
			continue
		}
		index[sku] = len(merged)
		merged = append(merged, Line{SKU: sku, Name: strings.TrimSpace(line.Name), Qty: line.Qty})
	}
	return merged, nil
}

// BuildPlan decides, all-or-nothing, what a reserve call would create.
// Quantity already reserved for the same order is subtracted from each line so
// repeating a call does not double count.
func BuildPlan(lines []Line, snap Snapshot) Plan {
	var plan Plan
	for _, line := range lines {
		item, ok := snap.Items[line.SKU]
		if !ok {
			plan.Failures = append(plan.Failures, UnregisteredMessage(line.SKU))
			continue
		}

		required := line.Qty - snap.ReservedForOrder[line.SKU]
		if required <= 0 {
			continue
		}

		name := line.Name
		if name == "" {
			name = item.Name
		}
		available := max(0, item.CurrentQty-snap.ReservedTotals[line.SKU])
		if available < required {
			plan.Failures = append(plan.Failures, ShortageMessage(name, available, required))
			continue
		}
		plan.Reservations = append(plan.Reservations, Reservation{SKU: line.SKU, Name: name, Qty: required})
	}

	if !plan.OK() {
		plan.Reservations = nil
	}
	return plan
}

// ShortageMessage formats an availability failure for one line.
func ShortageMessage(name string, available, required int) string {
	return fmt.Sprintf("%s: 가용 %d / 필요 %d", name, available, required)
}

// UnregisteredMessage formats the failure for a SKU missing from the catalog.
func UnregisteredMessage(sku string) string {
	return fmt.Sprintf("%s: 미등록 품목", sku)
}

// SumBySKU totals qty per SKU over allocations with the given status.
func SumBySKU(allocations []models.Allocation, status enums.AllocationStatus) map[string]int {
	out := make(map[string]int)
	for _, a := range allocations {
		if a.Status == status {
			out[a.SKU] += a.Qty
		}
	}
	return out
}
