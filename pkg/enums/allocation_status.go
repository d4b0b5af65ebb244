package enums

import "fmt"

// AllocationStatus tracks a reservation's lifecycle.
type AllocationStatus string

const (
	AllocationStatusReserved AllocationStatus = "reserved"
	AllocationStatusShipped  AllocationStatus = "shipped"
	AllocationStatusReleased AllocationStatus = "released"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusReserved,
	AllocationStatusShipped,
	AllocationStatusReleased,
}

// String implements fmt.Stringer.
func (s AllocationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known allocation status.
func (s AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s AllocationStatus) IsTerminal() bool {
	return s == AllocationStatusShipped || s == AllocationStatusReleased
}

// CanTransitionTo reports whether moving from s to next is legal.
// Only reserved allocations may move, and only to shipped or released.
func (s AllocationStatus) CanTransitionTo(next AllocationStatus) bool {
	if s != AllocationStatusReserved {
		return false
	}
	return next == AllocationStatusShipped || next == AllocationStatusReleased
}

// ParseAllocationStatus converts raw input into AllocationStatus.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}
