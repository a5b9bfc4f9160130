package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/stock"
	"github.com/shopspring/decimal"
)

const productSelect = `
	SELECT id, sku, name, description, price, stock_quantity, created_at, updated_at
	FROM products`

func scanProduct(scan func(...any) error) (*models.Product, error) {
	product := &models.Product{}
	err := scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, sku, name, description string, price decimal.Decimal, stockQuantity int) (*models.Product, error) {
	product, err := scanProduct(db.QueryRowContext(ctx,
		`INSERT INTO products (sku, name, description, price, stock_quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, sku, name, description, price, stock_quantity, created_at, updated_at`,
		sku, name, description, price, stockQuantity).Scan)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product, err := scanProduct(db.QueryRowContext(ctx, productSelect+`
	WHERE id = $1`, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ReserveStock locks the product row for the rest of the transaction and
// checks availability against the requested quantity. The conditional
// DecrementStock is still the final word; this lock closes the gap between
// validation and decrement for concurrent checkouts.
func ReserveStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	product, err := scanProduct(tx.QueryRowContext(ctx, productSelect+`
	WHERE id = $1
	FOR UPDATE`, productID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	if !stock.HasStock(product.StockQuantity, quantity) {
		return nil, &database.StockError{
			ProductName: product.Name,
			Available:   product.StockQuantity,
		}
	}

	return product, nil
}

// DecrementStock is a single compare-and-decrement: the update only applies
// while stock stays non-negative, so two checkouts can never both take the
// last unit.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx, productSelect+`
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
