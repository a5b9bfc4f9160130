package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a Postgres unique violation on the
// named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrCartNotFound           = errors.New("cart not found")
	ErrCartItemNotFound       = errors.New("cart item not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAddressNotFound        = errors.New("address not found")
	ErrShippingMethodNotFound = errors.New("shipping method not found")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")

	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidIntent   = errors.New("intent must be one of: add, replace")
	ErrEmptyCart       = errors.New("cart not found or empty")

	ErrIncompleteProfile = errors.New("please complete customer information: full name, email address, phone number")
	ErrIncompleteAddress = errors.New("please complete address information")

	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOrderNumberCollision    = errors.New("order number collision")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// StockError reports a quantity that exceeds the available stock of a
// product. It matches ErrInsufficientStock via errors.Is and carries the
// available quantity for the caller-facing message.
type StockError struct {
	ProductName string
	Available   int
}

func (e *StockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("quantity exceeds available stock for %s. Available: %d", e.ProductName, e.Available)
	}
	return fmt.Sprintf("quantity exceeds available stock. Available: %d", e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
