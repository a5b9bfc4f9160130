package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monetary values are whole minor-currency units (IDR) stored as NUMERIC.

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Address struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Label         string    `json:"label,omitempty"`
	RecipientName string    `json:"recipient_name"`
	PhoneNumber   string    `json:"phone_number"`
	Street        string    `json:"street"`
	City          string    `json:"city"`
	Province      string    `json:"province"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	Notes         string    `json:"notes,omitempty"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ShippingMethod struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type PaymentMethod struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Cart is the per-user basket. TotalPrice is a cached aggregate; it is only
// ever written in the same transaction as the item mutation it summarizes and
// always equals the sum of the items' SubTotalPrice.
type Cart struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Items      []CartItem      `json:"items"`
}

// CartItem holds one product line. SubTotalPrice is quantity times the
// product price at the time of the last mutation, not an authoritative value.
type CartItem struct {
	ID            int64           `json:"id"`
	CartID        int64           `json:"cart_id"`
	ProductID     int64           `json:"product_id"`
	Quantity      int             `json:"quantity"`
	SubTotalPrice decimal.Decimal `json:"sub_total_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Product       *Product        `json:"product,omitempty"`
}

// Order is immutable after creation except for Status and the courier and
// tracking fields written by fulfillment. TotalAmount always equals
// SubTotal + ShippingCost - Discount.
type Order struct {
	ID                int64           `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            int64           `json:"user_id"`
	Status            string          `json:"status"`
	ShippingAddressID int64           `json:"shipping_address_id"`
	ShippingMethodID  int64           `json:"shipping_method_id"`
	PaymentMethodID   int64           `json:"payment_method_id"`
	SubTotal          decimal.Decimal `json:"sub_total"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Discount          decimal.Decimal `json:"discount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Notes             string          `json:"notes,omitempty"`
	Courier           *string         `json:"courier,omitempty"`
	TrackingNumber    *string         `json:"tracking_number,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Items           []OrderItem     `json:"items,omitempty"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"`
	ShippingMethod  *ShippingMethod `json:"shipping_method,omitempty"`
	PaymentMethod   *PaymentMethod  `json:"payment_method,omitempty"`
}

// OrderItem snapshots Price at checkout time; it is never recomputed from the
// catalog. Total is quantity times the snapshot price.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	Product   *Product        `json:"product,omitempty"`
}
