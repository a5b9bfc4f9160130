package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/store"
)

func TestCreateAndGetProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	created, err := store.CreateProduct(ctx, db, "CRS-301", "Butter Croissant",
		"Flaky butter croissant", decimal.NewFromInt(18000), 24)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected non-zero product ID")
	}

	got, err := store.GetProduct(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.SKU != "CRS-301" {
		t.Errorf("Expected SKU CRS-301, got %s", got.SKU)
	}
	if !got.Price.Equal(decimal.NewFromInt(18000)) {
		t.Errorf("Expected price 18000, got %s", got.Price)
	}
	if got.StockQuantity != 24 {
		t.Errorf("Expected stock 24, got %d", got.StockQuantity)
	}
}

func TestGetProductNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.GetProduct(context.Background(), db, 99999)
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found error, got: %v", err)
	}
}

func TestListProducts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		createTestProduct(t, db, fmt.Sprintf("LST-%03d", i), 10000, 10)
	}

	page, err := store.ListProducts(context.Background(), db, 1, 3)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	products := page.Items.([]models.Product)
	if len(products) != 3 {
		t.Errorf("Expected 3 products on page 1, got %d", len(products))
	}
	if page.Total != 5 {
		t.Errorf("Expected total 5, got %d", page.Total)
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", page.TotalPages)
	}

	page, err = store.ListProducts(context.Background(), db, 2, 3)
	if err != nil {
		t.Fatalf("ListProducts page 2: %v", err)
	}
	products = page.Items.([]models.Product)
	if len(products) != 2 {
		t.Errorf("Expected 2 products on page 2, got %d", len(products))
	}
}

func TestReserveStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := createTestProduct(t, db, "RSV-302", 15000, 3)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		locked, err := store.ReserveStock(ctx, tx, product.ID, 3)
		if err != nil {
			return err
		}
		if locked.StockQuantity != 3 {
			t.Errorf("Expected locked stock 3, got %d", locked.StockQuantity)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Reserve within stock: %v", err)
	}

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := store.ReserveStock(ctx, tx, product.ID, 4)
		return err
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	var stockErr *database.StockError
	if errors.As(err, &stockErr) {
		if stockErr.Available != 3 {
			t.Errorf("Expected available 3, got %d", stockErr.Available)
		}
	} else {
		t.Errorf("Expected StockError, got: %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := createTestProduct(t, db, "DEC-303", 15000, 5)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return store.DecrementStock(ctx, tx, product.ID, 5)
	})
	if err != nil {
		t.Fatalf("Decrement to zero: %v", err)
	}
	if got := productStock(t, db, product.ID); got != 0 {
		t.Errorf("Expected stock 0, got %d", got)
	}

	// the guard refuses to go negative
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return store.DecrementStock(ctx, tx, product.ID, 1)
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}
	if got := productStock(t, db, product.ID); got != 0 {
		t.Errorf("Expected stock still 0, got %d", got)
	}
}
