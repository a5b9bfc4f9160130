package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/pricing"
	"github.com/rahmah/go-bakery-store/internal/stock"
	"github.com/shopspring/decimal"
)

// querier covers *sql.DB and *sql.Tx so read helpers work in both contexts.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetOrCreateCart returns the user's cart with items and products loaded,
// creating an empty cart on first access. Calling it twice returns the same
// cart: the insert is a no-op when a cart already exists.
func GetOrCreateCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO carts (user_id, total_price, created_at, updated_at)
		 VALUES ($1, 0, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return getCartByUserID(ctx, db, userID)
}

func getCartByUserID(ctx context.Context, q querier, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}

	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, total_price, created_at, updated_at
		 FROM carts
		 WHERE user_id = $1`,
		userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items, err := listCartItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.sub_total_price, ci.created_at, ci.updated_at,
	       p.id, p.sku, p.name, p.description, p.price, p.stock_quantity, p.created_at, p.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartItem(scan func(...any) error) (*models.CartItem, error) {
	item := &models.CartItem{Product: &models.Product{}}
	err := scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.SubTotalPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
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
		return nil, err
	}
	return item, nil
}

func listCartItems(ctx context.Context, q querier, cartID int64) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx, cartItemSelect+`
	WHERE ci.cart_id = $1
	ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func getCartItem(ctx context.Context, q querier, cartID, itemID int64) (*models.CartItem, error) {
	item, err := scanCartItem(q.QueryRowContext(ctx, cartItemSelect+`
	WHERE ci.id = $1 AND ci.cart_id = $2`, itemID, cartID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

// lockCart takes the cart row lock for the user, creating the cart when
// absent. Serializes every read-modify-write on the same cart.
func lockCart(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO carts (user_id, total_price, created_at, updated_at)
		 VALUES ($1, 0, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
		userID).Scan(&cartID)
	if err != nil {
		return 0, fmt.Errorf("lock cart: %w", err)
	}
	return cartID, nil
}

// recomputeCartTotal rewrites the cached aggregate from the surviving items.
// Runs inside the same transaction as the item mutation, keeping the
// invariant total_price == sum(sub_total_price).
func recomputeCartTotal(ctx context.Context, tx *sql.Tx, cartID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE carts
		 SET total_price = COALESCE((SELECT SUM(sub_total_price) FROM cart_items WHERE cart_id = $1), 0),
		     updated_at = NOW()
		 WHERE id = $1`,
		cartID)
	if err != nil {
		return fmt.Errorf("recompute cart total: %w", err)
	}
	return nil
}

// UpsertCartItem adds a product to the user's cart or merges with the
// existing line according to intent. Returns the affected item with its
// product resolved and whether a new line was created.
func UpsertCartItem(ctx context.Context, db *sql.DB, userID, productID int64, quantity int, intent Intent) (*models.CartItem, bool, error) {
	if quantity <= 0 {
		return nil, false, database.ErrInvalidQuantity
	}

	var (
		item    *models.CartItem
		created bool
	)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cartID, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		var (
			productName   string
			productPrice  decimal.Decimal
			stockQuantity int
		)
		err = tx.QueryRowContext(ctx,
			`SELECT name, price, stock_quantity FROM products WHERE id = $1`,
			productID).Scan(&productName, &productPrice, &stockQuantity)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("get product: %w", err)
		}

		var (
			existingID  int64
			existingQty int
		)
		err = tx.QueryRowContext(ctx,
			`SELECT id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID).Scan(&existingID, &existingQty)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("get existing cart item: %w", err)
		}
		exists := err == nil

		effectiveQty := quantity
		if exists && intent == IntentAdd {
			effectiveQty = existingQty + quantity
		}

		if !stock.HasStock(stockQuantity, effectiveQty) {
			return &database.StockError{ProductName: productName, Available: stockQuantity}
		}

		subTotal := pricing.LineSubtotal(effectiveQty, productPrice)

		var itemID int64
		if exists {
			_, err = tx.ExecContext(ctx,
				`UPDATE cart_items
				 SET quantity = $1, sub_total_price = $2, updated_at = NOW()
				 WHERE id = $3`,
				effectiveQty, subTotal, existingID)
			if err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
			itemID = existingID
		} else {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO cart_items (cart_id, product_id, quantity, sub_total_price, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, NOW(), NOW())
				 RETURNING id`,
				cartID, productID, effectiveQty, subTotal).Scan(&itemID)
			if err != nil {
				return fmt.Errorf("create cart item: %w", err)
			}
			created = true
		}

		if err := recomputeCartTotal(ctx, tx, cartID); err != nil {
			return err
		}

		item, err = getCartItem(ctx, tx, cartID, itemID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return item, created, nil
}

// UpdateCartItemQuantity replaces the quantity of an existing cart line.
func UpdateCartItemQuantity(ctx context.Context, db *sql.DB, userID, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, database.ErrInvalidQuantity
	}

	var item *models.CartItem

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cartID, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		current, err := getCartItem(ctx, tx, cartID, itemID)
		if err != nil {
			return err
		}

		if !stock.HasStock(current.Product.StockQuantity, quantity) {
			return &database.StockError{
				ProductName: current.Product.Name,
				Available:   current.Product.StockQuantity,
			}
		}

		subTotal := pricing.LineSubtotal(quantity, current.Product.Price)
		_, err = tx.ExecContext(ctx,
			`UPDATE cart_items
			 SET quantity = $1, sub_total_price = $2, updated_at = NOW()
			 WHERE id = $3`,
			quantity, subTotal, itemID)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}

		if err := recomputeCartTotal(ctx, tx, cartID); err != nil {
			return err
		}

		item, err = getCartItem(ctx, tx, cartID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// RemoveCartItem deletes a cart line owned by the user and refreshes the
// cart total from the remaining items.
func RemoveCartItem(ctx context.Context, db *sql.DB, userID, itemID int64) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cartID, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`,
			itemID, cartID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrCartItemNotFound
		}

		return recomputeCartTotal(ctx, tx, cartID)
	})
}

// ClearCart removes every item and zeroes the cached total. Runs inside the
// checkout transaction.
func ClearCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET total_price = 0, updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("reset cart total: %w", err)
	}

	return nil
}
