package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db, email, "Sari Dewi", "+6281234567890")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, db *sql.DB, sku string, price int64, stockQty int) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, sku, "Roti Coklat "+sku, "Chocolate bread",
		decimal.NewFromInt(price), stockQty)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func createTestAddress(t *testing.T, db *sql.DB, userID int64) *models.Address {
	t.Helper()

	address, err := store.CreateAddress(context.Background(), db, &models.Address{
		UserID:        userID,
		Label:         "Rumah",
		RecipientName: "Sari Dewi",
		PhoneNumber:   "+6281234567890",
		Street:        "Jl. Sam Ratulangi No. 12",
		City:          "Manado",
		Province:      "Sulawesi Utara",
		PostalCode:    "95111",
		Country:       "Indonesia",
		IsDefault:     true,
	})
	if err != nil {
		t.Fatalf("Create address: %v", err)
	}
	return address
}

// assertCartInvariant checks that the cached cart total equals the sum of the
// item subtotals as stored.
func assertCartInvariant(t *testing.T, db *sql.DB, cartID int64) {
	t.Helper()

	var cached, summed decimal.Decimal
	err := db.QueryRow(`
		SELECT c.total_price, COALESCE((SELECT SUM(ci.sub_total_price) FROM cart_items ci WHERE ci.cart_id = c.id), 0)
		FROM carts c
		WHERE c.id = $1`, cartID).Scan(&cached, &summed)
	if err != nil {
		t.Fatalf("Read cart totals: %v", err)
	}

	if !cached.Equal(summed) {
		t.Errorf("Cart %d total %s does not equal item sum %s", cartID, cached, summed)
	}
}

func productStock(t *testing.T, db *sql.DB, productID int64) int {
	t.Helper()

	var stockQty int
	if err := db.QueryRow(`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stockQty); err != nil {
		t.Fatalf("Read product stock: %v", err)
	}
	return stockQty
}

func orderCount(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	return count
}
