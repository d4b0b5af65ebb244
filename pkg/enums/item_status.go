package enums

import "fmt"

// ItemStatus is the derived stock health of a catalog item.
type ItemStatus string

const (
	ItemStatusNormal ItemStatus = "normal"
	ItemStatusLow    ItemStatus = "low"
	ItemStatusExcess ItemStatus = "excess"
	ItemStatusDefect ItemStatus = "defect"
)

var validItemStatuses = []ItemStatus{
	ItemStatusNormal,
	ItemStatusLow,
	ItemStatusExcess,
	ItemStatusDefect,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known item status.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
