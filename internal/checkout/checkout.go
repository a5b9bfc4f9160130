// Package checkout converts a cart into an order as one logical transaction:
// stock re-validation, order persistence, the stock decrement, and the cart
// clear either all commit or none do.
package checkout

import (
	"context"
	"database/sql"
	"errors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/store"
)

type Request struct {
	AddressID          int64
	ShippingMethodSlug string
	PaymentMethodSlug  string
	Notes              string
}

// Checkout places an order for the user's current cart.
//
// The reads fan out concurrently since they are independent. Lookups that
// merely miss resolve to nil so the order factory reports the precondition
// failure for each missing piece; only infrastructure errors abort early.
func Checkout(ctx context.Context, db *sql.DB, user *models.User, req Request) (*models.Order, error) {
	var (
		cart     *models.Cart
		address  *models.Address
		shipping *models.ShippingMethod
		payment  *models.PaymentMethod
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := store.GetOrCreateCart(gctx, db, user.ID)
		if err != nil {
			return err
		}
		cart = c
		return nil
	})
	g.Go(func() error {
		a, err := store.GetAddress(gctx, db, req.AddressID, user.ID)
		if err != nil && !errors.Is(err, database.ErrAddressNotFound) {
			return err
		}
		address = a
		return nil
	})
	g.Go(func() error {
		s, err := store.GetShippingMethodBySlug(gctx, db, req.ShippingMethodSlug)
		if err != nil && !errors.Is(err, database.ErrShippingMethodNotFound) {
			return err
		}
		shipping = s
		return nil
	})
	g.Go(func() error {
		p, err := store.GetPaymentMethodBySlug(gctx, db, req.PaymentMethodSlug)
		if err != nil && !errors.Is(err, database.ErrPaymentMethodNotFound) {
			return err
		}
		payment = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		// Lock every product and re-validate against current stock; cart
		// items may be stale by now.
		for i := range cart.Items {
			item := &cart.Items[i]
			product, err := store.ReserveStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			item.Product = product
		}

		created, err := store.CreateOrder(ctx, tx, store.OrderDraft{
			User:           user,
			Cart:           cart,
			Address:        address,
			ShippingMethod: shipping,
			PaymentMethod:  payment,
			Notes:          req.Notes,
		})
		if err != nil {
			return err
		}

		for _, item := range cart.Items {
			if err := store.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, database.ErrInsufficientStock) {
					return &database.StockError{
						ProductName: item.Product.Name,
						Available:   item.Product.StockQuantity,
					}
				}
				return err
			}
		}

		if err := store.ClearCart(ctx, tx, cart.ID); err != nil {
			return err
		}

		order = created
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrInsufficientStock) {
			log.WithFields(log.Fields{
				"user_id": user.ID,
			}).WithError(err).Warn("checkout rejected: insufficient stock")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":      user.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"items":        len(order.Items),
	}).Info("checkout completed")

	return order, nil
}
