// Package pricing holds the pure money arithmetic for carts and orders.
// All values are exact decimals in minor currency units; nothing here rounds
// or touches the database.
package pricing

import (
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/shopspring/decimal"
)

// LineSubtotal is quantity times unit price.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartTotal sums the cached line subtotals of the given items.
func CartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.SubTotalPrice)
	}
	return total
}

// OrderTotal is subTotal + shippingCost - discount. The caller guarantees
// discount never exceeds subTotal; a negative result is a programming error.
func OrderTotal(subTotal, shippingCost, discount decimal.Decimal) decimal.Decimal {
	return subTotal.Add(shippingCost).Sub(discount)
}
