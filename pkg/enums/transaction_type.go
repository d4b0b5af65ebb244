package enums

import "fmt"

// TransactionType classifies a stock ledger entry.
type TransactionType string

const (
	TransactionTypeInbound    TransactionType = "inbound"
	TransactionTypeOutbound   TransactionType = "outbound"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeRelocation TransactionType = "relocation"
	TransactionTypeAllocation TransactionType = "allocation"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeInbound,
	TransactionTypeOutbound,
	TransactionTypeAdjustment,
	TransactionTypeRelocation,
	TransactionTypeAllocation,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known transaction type.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsQuantityMovement reports whether the type may be used to change on-hand
// quantity directly. Relocation and allocation entries are bookkeeping only.
func (t TransactionType) IsQuantityMovement() bool {
	switch t {
	case TransactionTypeInbound, TransactionTypeOutbound, TransactionTypeAdjustment:
		return true
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
