package integration

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rahmah/go-bakery-store/internal/checkout"
	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/store"
)

// placeOrder fills the user's cart with the given quantity of the product
// and checks it out with regular shipping paid by bank transfer.
func placeOrder(t *testing.T, db *sql.DB, user *models.User, address *models.Address, productID int64, quantity int) *models.Order {
	t.Helper()

	ctx := context.Background()
	if _, _, err := store.UpsertCartItem(ctx, db, user.ID, productID, quantity, store.IntentAdd); err != nil {
		t.Fatalf("Fill cart: %v", err)
	}

	order, err := checkout.Checkout(ctx, db, user, checkout.Request{
		AddressID:          address.ID,
		ShippingMethodSlug: "regular",
		PaymentMethodSlug:  "bank_transfer",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return order
}

func TestGetOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders1@example.com")
	address := createTestAddress(t, db, user.ID)
	product := createTestProduct(t, db, "CKE-201", 35000, 20)

	placed := placeOrder(t, db, user, address, product.ID, 2)

	order, err := store.GetOrder(ctx, db, placed.ID, user.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}

	if order.OrderNumber != placed.OrderNumber {
		t.Errorf("Expected order number %s, got %s", placed.OrderNumber, order.OrderNumber)
	}
	if !order.TotalAmount.Equal(order.SubTotal.Add(order.ShippingCost).Sub(order.Discount)) {
		t.Errorf("Total %s does not equal subtotal %s + shipping %s - discount %s",
			order.TotalAmount, order.SubTotal, order.ShippingCost, order.Discount)
	}

	itemSum := decimal.Zero
	for _, item := range order.Items {
		itemSum = itemSum.Add(item.Total)
	}
	if !order.SubTotal.Equal(itemSum) {
		t.Errorf("Subtotal %s does not equal sum of item totals %s", order.SubTotal, itemSum)
	}

	if order.ShippingAddress == nil || order.ShippingAddress.ID != address.ID {
		t.Error("Expected shipping address to be resolved")
	}
	if order.ShippingMethod == nil || order.ShippingMethod.Slug != "regular" {
		t.Error("Expected shipping method to be resolved")
	}
	if order.PaymentMethod == nil || order.PaymentMethod.Slug != "bank_transfer" {
		t.Error("Expected payment method to be resolved")
	}

	// ownership: another user cannot see the order
	stranger := createTestUser(t, db, "orders1b@example.com")
	if _, err := store.GetOrder(ctx, db, placed.ID, stranger.ID); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found for foreign user, got: %v", err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders2@example.com")
	address := createTestAddress(t, db, user.ID)
	product := createTestProduct(t, db, "CKE-202", 35000, 20)

	order := placeOrder(t, db, user, address, product.ID, 1)

	// skipping ahead is rejected
	err := store.UpdateOrderStatus(ctx, db, order.ID, user.ID, models.OrderStatusShipped)
	if !errors.Is(err, database.ErrInvalidStatusTransition) {
		t.Errorf("Expected invalid transition pending->shipped, got: %v", err)
	}

	for _, status := range []string{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		if err := store.UpdateOrderStatus(ctx, db, order.ID, user.ID, status); err != nil {
			t.Fatalf("Transition to %s: %v", status, err)
		}
	}

	got, err := store.GetOrder(ctx, db, order.ID, user.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != models.OrderStatusDelivered {
		t.Errorf("Expected status delivered, got %s", got.Status)
	}

	// delivered is terminal
	err = store.UpdateOrderStatus(ctx, db, order.ID, user.ID, models.OrderStatusCancelled)
	if !errors.Is(err, database.ErrInvalidStatusTransition) {
		t.Errorf("Expected invalid transition delivered->cancelled, got: %v", err)
	}

	// unknown status string never reaches the row
	err = store.UpdateOrderStatus(ctx, db, order.ID, user.ID, "misplaced")
	if !errors.Is(err, database.ErrInvalidStatusTransition) {
		t.Errorf("Expected invalid status to be rejected, got: %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders3@example.com")
	address := createTestAddress(t, db, user.ID)
	product := createTestProduct(t, db, "CKE-203", 35000, 20)

	order := placeOrder(t, db, user, address, product.ID, 1)

	if err := store.UpdateOrderStatus(ctx, db, order.ID, user.ID, models.OrderStatusCancelled); err != nil {
		t.Fatalf("Cancel pending order: %v", err)
	}

	err := store.UpdateOrderStatus(ctx, db, order.ID, user.ID, models.OrderStatusConfirmed)
	if !errors.Is(err, database.ErrInvalidStatusTransition) {
		t.Errorf("Expected cancelled order to stay cancelled, got: %v", err)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders4@example.com")
	address := createTestAddress(t, db, user.ID)
	product := createTestProduct(t, db, "CKE-204", 35000, 20)

	var placed []*models.Order
	for i := 0; i < 3; i++ {
		placed = append(placed, placeOrder(t, db, user, address, product.ID, 1))
	}

	page, err := store.ListOrdersCursor(ctx, db, user.ID, "", 2)
	if err != nil {
		t.Fatalf("ListOrdersCursor: %v", err)
	}
	first := page.Items.([]models.Order)
	if len(first) != 2 {
		t.Fatalf("Expected 2 orders on first page, got %d", len(first))
	}
	if !page.HasMore || page.NextCursor == "" {
		t.Error("Expected more pages after the first")
	}
	// newest first
	if first[0].OrderNumber != placed[2].OrderNumber {
		t.Errorf("Expected newest order first, got %s", first[0].OrderNumber)
	}

	page, err = store.ListOrdersCursor(ctx, db, user.ID, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("ListOrdersCursor second page: %v", err)
	}
	second := page.Items.([]models.Order)
	if len(second) != 1 {
		t.Fatalf("Expected 1 order on second page, got %d", len(second))
	}
	if page.HasMore {
		t.Error("Expected no more pages")
	}
	if second[0].OrderNumber != placed[0].OrderNumber {
		t.Errorf("Expected oldest order last, got %s", second[0].OrderNumber)
	}

	// another user sees nothing
	stranger := createTestUser(t, db, "orders4b@example.com")
	page, err = store.ListOrdersCursor(ctx, db, stranger.ID, "", 10)
	if err != nil {
		t.Fatalf("ListOrdersCursor for foreign user: %v", err)
	}
	if orders, ok := page.Items.([]models.Order); ok && len(orders) != 0 {
		t.Errorf("Expected empty list, got %d orders", len(orders))
	}
}
