package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/pricing"
	"github.com/shopspring/decimal"
)

// OrderDraft is the resolved input tuple for CreateOrder. The orchestrator
// fetches the pieces; missing ones stay nil and fail the matching
// precondition here.
type OrderDraft struct {
	User           *models.User
	Cart           *models.Cart
	Address        *models.Address
	ShippingMethod *models.ShippingMethod
	PaymentMethod  *models.PaymentMethod
	Notes          string
}

const orderNumberAttempts = 3

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func generateOrderNumber() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// nextOrderNumber generates a candidate and verifies it is unused, retrying a
// bounded number of times. The unique index on order_number remains the
// backstop for a race between the check and the insert.
func nextOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		candidate := generateOrderNumber()

		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`,
			candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", database.ErrOrderNumberCollision
}

// CreateOrder validates the draft and persists the order with snapshotted
// items inside the caller's transaction. Item prices are the products'
// current prices, not the cart's cached subtotals. Stock and the cart are
// left untouched; that is the checkout orchestrator's job.
func CreateOrder(ctx context.Context, tx *sql.Tx, draft OrderDraft) (*models.Order, error) {
	if draft.Cart == nil || len(draft.Cart.Items) == 0 {
		return nil, database.ErrEmptyCart
	}
	if draft.Address == nil || draft.Address.UserID != draft.User.ID {
		return nil, database.ErrAddressNotFound
	}
	if draft.ShippingMethod == nil {
		return nil, database.ErrShippingMethodNotFound
	}
	if draft.PaymentMethod == nil {
		return nil, database.ErrPaymentMethodNotFound
	}
	if err := ValidateProfile(draft.User); err != nil {
		return nil, err
	}
	if err := ValidateAddressComplete(draft.Address); err != nil {
		return nil, err
	}

	subTotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(draft.Cart.Items))
	for _, cartItem := range draft.Cart.Items {
		var price decimal.Decimal
		err := tx.QueryRowContext(ctx,
			`SELECT price FROM products WHERE id = $1`,
			cartItem.ProductID).Scan(&price)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, database.ErrProductNotFound
			}
			return nil, fmt.Errorf("snapshot product price: %w", err)
		}

		total := pricing.LineSubtotal(cartItem.Quantity, price)
		items = append(items, models.OrderItem{
			ProductID: cartItem.ProductID,
			Quantity:  cartItem.Quantity,
			Price:     price,
			Total:     total,
			Product:   cartItem.Product,
		})
		subTotal = subTotal.Add(total)
	}

	shippingCost := draft.ShippingMethod.Price
	discount := decimal.Zero
	totalAmount := pricing.OrderTotal(subTotal, shippingCost, discount)

	notes := draft.Notes
	if notes == "" {
		notes = draft.Address.Notes
	}

	orderNumber, err := nextOrderNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, status, shipping_address_id, shipping_method_id, payment_method_id,
		                     sub_total, shipping_cost, discount, total_amount, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		 RETURNING id, order_number, user_id, status, shipping_address_id, shipping_method_id, payment_method_id,
		           sub_total, shipping_cost, discount, total_amount, notes, created_at, updated_at`,
		orderNumber, draft.User.ID, models.OrderStatusPending,
		draft.Address.ID, draft.ShippingMethod.ID, draft.PaymentMethod.ID,
		subTotal, shippingCost, discount, totalAmount, notes).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.ShippingAddressID,
		&order.ShippingMethodID,
		&order.PaymentMethodID,
		&order.SubTotal,
		&order.ShippingCost,
		&order.Discount,
		&order.TotalAmount,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "orders_order_number_key") {
			return nil, database.ErrOrderNumberCollision
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i := range items {
		item := &items[i]
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price, total, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id, order_id, created_at`,
			order.ID, item.ProductID, item.Quantity, item.Price, item.Total).Scan(
			&item.ID,
			&item.OrderID,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	order.Items = items
	order.ShippingAddress = draft.Address
	order.ShippingMethod = draft.ShippingMethod
	order.PaymentMethod = draft.PaymentMethod

	return order, nil
}

const orderSelect = `
	SELECT id, order_number, user_id, status, shipping_address_id, shipping_method_id, payment_method_id,
	       sub_total, shipping_cost, discount, total_amount, notes, courier, tracking_number, created_at, updated_at
	FROM orders`

func scanOrder(scan func(...any) error) (*models.Order, error) {
	order := &models.Order{}
	err := scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.ShippingAddressID,
		&order.ShippingMethodID,
		&order.PaymentMethodID,
		&order.SubTotal,
		&order.ShippingCost,
		&order.Discount,
		&order.TotalAmount,
		&order.Notes,
		&order.Courier,
		&order.TrackingNumber,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns the order with items, shipping address, and method
// records, only when owned by the given user.
func GetOrder(ctx context.Context, db *sql.DB, id, userID int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, orderSelect+`
	WHERE id = $1 AND user_id = $2`, id, userID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.total, oi.created_at,
		        p.id, p.sku, p.name, p.description, p.price, p.stock_quantity, p.created_at, p.updated_at
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		item := models.OrderItem{Product: &models.Product{}}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.Total,
			&item.CreatedAt,
			&item.Product.ID,
			&item.Product.SKU,
			&item.Product.Name,
			&item.Product.Description,
			&item.Product.Price,
			&item.Product.StockQuantity,
			&item.Product.CreatedAt,
			&item.Product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	order.Items = items

	order.ShippingAddress, err = getAddressByID(ctx, db, order.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	order.ShippingMethod, err = getShippingMethodByID(ctx, db, order.ShippingMethodID)
	if err != nil {
		return nil, err
	}
	order.PaymentMethod, err = getPaymentMethodByID(ctx, db, order.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrdersCursor pages through the user's orders newest first.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	rows, err := db.QueryContext(ctx, orderSelect+`
	WHERE user_id = $1
	  AND (created_at, id) < ($2, $3)
	ORDER BY created_at DESC, id DESC
	LIMIT $4`, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus advances the order along the fulfillment flow. Anything
// outside the allowed transitions fails without touching the row.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id, userID int64, status string) error {
	if !models.ValidOrderStatus(status) {
		return database.ErrInvalidStatusTransition
	}

	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("get order status: %w", err)
		}

		if !models.CanTransitionOrderStatus(current, status) {
			return database.ErrInvalidStatusTransition
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, id)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return nil
	})
}
