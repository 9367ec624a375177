package models

import "strconv"

// CategoryKey returns the map key of the n-th ranked cluster (1-based).
func CategoryKey(n int) string {
	return "Category_" + strconv.Itoa(n)
}
