package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
)

// Shipping and payment methods are small immutable catalogs seeded by the
// migrations and looked up by slug.

func GetShippingMethodBySlug(ctx context.Context, db *sql.DB, slug string) (*models.ShippingMethod, error) {
	method := &models.ShippingMethod{}
	err := db.QueryRowContext(ctx,
		`SELECT id, slug, name, description, price FROM shipping_methods WHERE slug = $1`,
		slug).Scan(&method.ID, &method.Slug, &method.Name, &method.Description, &method.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrShippingMethodNotFound
		}
		return nil, fmt.Errorf("get shipping method: %w", err)
	}
	return method, nil
}

func getShippingMethodByID(ctx context.Context, q querier, id int64) (*models.ShippingMethod, error) {
	method := &models.ShippingMethod{}
	err := q.QueryRowContext(ctx,
		`SELECT id, slug, name, description, price FROM shipping_methods WHERE id = $1`,
		id).Scan(&method.ID, &method.Slug, &method.Name, &method.Description, &method.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrShippingMethodNotFound
		}
		return nil, fmt.Errorf("get shipping method: %w", err)
	}
	return method, nil
}

func ListShippingMethods(ctx context.Context, db *sql.DB) ([]models.ShippingMethod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, slug, name, description, price FROM shipping_methods ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shipping methods: %w", err)
	}
	defer rows.Close()

	var methods []models.ShippingMethod
	for rows.Next() {
		var m models.ShippingMethod
		if err := rows.Scan(&m.ID, &m.Slug, &m.Name, &m.Description, &m.Price); err != nil {
			return nil, fmt.Errorf("scan shipping method: %w", err)
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return methods, nil
}

func GetPaymentMethodBySlug(ctx context.Context, db *sql.DB, slug string) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{}
	err := db.QueryRowContext(ctx,
		`SELECT id, slug, name, description FROM payment_methods WHERE slug = $1`,
		slug).Scan(&method.ID, &method.Slug, &method.Name, &method.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return method, nil
}

func getPaymentMethodByID(ctx context.Context, q querier, id int64) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{}
	err := q.QueryRowContext(ctx,
		`SELECT id, slug, name, description FROM payment_methods WHERE id = $1`,
		id).Scan(&method.ID, &method.Slug, &method.Name, &method.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return method, nil
}

func ListPaymentMethods(ctx context.Context, db *sql.DB) ([]models.PaymentMethod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, slug, name, description FROM payment_methods ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Slug, &m.Name, &m.Description); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return methods, nil
}
