// Package stock holds the availability predicate shared by cart mutations
// and checkout. It operates on already-fetched values only.
package stock

// HasStock reports whether the requested quantity can be satisfied by the
// given stock level.
func HasStock(stockQuantity, requested int) bool {
	return requested <= stockQuantity
}
