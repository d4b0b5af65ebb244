package enums

import "testing"

func TestParseTransactionType(t *testing.T) {
	for _, raw := range []string{"inbound", "outbound", "adjustment", "relocation", "allocation"} {
		got, err := ParseTransactionType(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !got.IsValid() {
			t.Fatalf("%q should be valid", raw)
		}
	}
	if _, err := ParseTransactionType("transfer"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestTransactionTypeIsQuantityMovement(t *testing.T) {
	movers := map[TransactionType]bool{
		TransactionTypeInbound:    true,
		TransactionTypeOutbound:   true,
		TransactionTypeAdjustment: true,
		TransactionTypeRelocation: false,
		TransactionTypeAllocation: false,
	}
	for typ, want := range movers {
		if got := typ.IsQuantityMovement(); got != want {
			t.Fatalf("%s: expected %v got %v", typ, want, got)
		}
	}
}

func TestAllocationStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AllocationStatus
		ok       bool
	}{
		{AllocationStatusReserved, AllocationStatusShipped, true},
		{AllocationStatusReserved, AllocationStatusReleased, true},
		{AllocationStatusReserved, AllocationStatusReserved, false},
		{AllocationStatusShipped, AllocationStatusReleased, false},
		{AllocationStatusReleased, AllocationStatusShipped, false},
		{AllocationStatusShipped, AllocationStatusReserved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
	if AllocationStatusReserved.IsTerminal() {
		t.Fatal("reserved must not be terminal")
	}
	if !AllocationStatusShipped.IsTerminal() || !AllocationStatusReleased.IsTerminal() {
		t.Fatal("shipped and released must be terminal")
	}
}

func TestParseItemStatus(t *testing.T) {
	if _, err := ParseItemStatus("excess"); err != nil {
		t.Fatalf("parse excess: %v", err)
	}
	if _, err := ParseItemStatus("broken"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
