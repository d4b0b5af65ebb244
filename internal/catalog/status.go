package catalog

import "github.com/angelmondragon/stockledger/pkg/enums"

// StatusFor derives the item status from on-hand and safety quantities.
func StatusFor(currentQty, safetyQty int) enums.ItemStatus {
	switch {
	case safetyQty <= 0:
		return enums.ItemStatusDefect
	case currentQty < safetyQty:
		return enums.ItemStatusLow
	case currentQty > safetyQty*2:
		return enums.ItemStatusExcess
	default:
		return enums.ItemStatusNormal
	}
}
