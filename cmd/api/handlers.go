package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/rahmah/go-bakery-store/internal/checkout"
	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/metrics"
	"github.com/rahmah/go-bakery-store/internal/models"
	"github.com/rahmah/go-bakery-store/internal/store"
)

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleCart(db *sql.DB) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		cart, err := store.GetOrCreateCart(r.Context(), db, user.ID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, cart)
	}
}

func handleCartItems(db *sql.DB, m *metrics.StoreMetrics) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		if r.Method != http.MethodPut {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			ProductID int64  `json:"product_id"`
			Quantity  int    `json:"quantity"`
			Intent    string `json:"intent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		intent, err := store.ParseIntent(req.Intent)
		if err != nil {
			m.CartMutations.WithLabelValues("upsert", outcome(err)).Inc()
			respondStoreError(w, err)
			return
		}

		item, created, err := store.UpsertCartItem(r.Context(), db, user.ID, req.ProductID, req.Quantity, intent)
		m.CartMutations.WithLabelValues("upsert", outcome(err)).Inc()
		if err != nil {
			respondStoreError(w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		respondJSON(w, status, item)
	}
}

func handleCartItemByID(db *sql.DB, m *metrics.StoreMetrics) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		itemID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/cart/items/"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		switch r.Method {
		case http.MethodPatch:
			var req struct {
				Quantity int `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			item, err := store.UpdateCartItemQuantity(r.Context(), db, user.ID, itemID, req.Quantity)
			m.CartMutations.WithLabelValues("update", outcome(err)).Inc()
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, item)

		case http.MethodDelete:
			err := store.RemoveCartItem(r.Context(), db, user.ID, itemID)
			m.CartMutations.WithLabelValues("remove", outcome(err)).Inc()
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, map[string]string{"message": "Item successfully removed from cart"})

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCheckout(db *sql.DB, m *metrics.StoreMetrics) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			AddressID          int64  `json:"address_id"`
			ShippingMethodSlug string `json:"shipping_method_slug"`
			PaymentMethodSlug  string `json:"payment_method_slug"`
			Notes              string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		start := time.Now()
		order, err := checkout.Checkout(r.Context(), db, user, checkout.Request{
			AddressID:          req.AddressID,
			ShippingMethodSlug: req.ShippingMethodSlug,
			PaymentMethodSlug:  req.PaymentMethodSlug,
			Notes:              req.Notes,
		})
		m.CheckoutDuration.Observe(float64(time.Since(start).Milliseconds()))
		m.CheckoutsTotal.WithLabelValues(outcome(err)).Inc()
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, order)
	}
}

func handleOrders(db *sql.DB) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		page, err := store.ListOrdersCursor(r.Context(), db, user.ID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, page)
	}
}

func handleOrderByID(db *sql.DB) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		rest := strings.TrimPrefix(r.URL.Path, "/orders/")
		idStr, sub, _ := strings.Cut(rest, "/")

		orderID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			order, err := store.GetOrder(r.Context(), db, orderID, user.ID)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, order)

		case sub == "status" && r.Method == http.MethodPatch:
			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if err := store.UpdateOrderStatus(r.Context(), db, orderID, user.ID, req.Status); err != nil {
				respondStoreError(w, err)
				return
			}

			order, err := store.GetOrder(r.Context(), db, orderID, user.ID)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, order)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleAddresses(db *sql.DB) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		switch r.Method {
		case http.MethodGet:
			addresses, err := store.ListAddresses(r.Context(), db, user.ID)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, addresses)

		case http.MethodPost:
			var req models.Address
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			req.UserID = user.ID

			address, err := store.CreateAddress(r.Context(), db, &req)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusCreated, address)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleUsers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Email string `json:"email"`
				Name  string `json:"name"`
				Phone string `json:"phone"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			user, err := store.CreateUser(ctx, db, req.Email, req.Name, req.Phone)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, user)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListUsers(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleUserByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/users/"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := store.GetUser(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				SKU         string `json:"sku"`
				Name        string `json:"name"`
				Description string `json:"description"`
				Price       int64  `json:"price"`
				Stock       int    `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.CreateProduct(ctx, db, req.SKU, req.Name, req.Description, decimal.NewFromInt(req.Price), req.Stock)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListProducts(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProductByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/products/"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		product, err := store.GetProduct(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleShippingMethods(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods, err := store.ListShippingMethods(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, methods)
	}
}

func handlePaymentMethods(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods, err := store.ListPaymentMethods(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, methods)
	}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// respondStoreError maps domain errors to stable status codes. Anything
// unclassified is an unexpected persistence failure and surfaces as a generic
// internal error; the detail goes to the log only.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrAddressNotFound),
		errors.Is(err, database.ErrShippingMethodNotFound),
		errors.Is(err, database.ErrPaymentMethodNotFound),
		errors.Is(err, database.ErrEmptyCart):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrInvalidIntent),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrIncompleteProfile),
		errors.Is(err, database.ErrIncompleteAddress),
		errors.Is(err, database.ErrInvalidStatusTransition):
		respondError(w, http.StatusBadRequest, err.Error())

	default:
		log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, database.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrInvalidIntent),
		errors.Is(err, database.ErrIncompleteProfile),
		errors.Is(err, database.ErrIncompleteAddress):
		return "invalid"
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrAddressNotFound),
		errors.Is(err, database.ErrShippingMethodNotFound),
		errors.Is(err, database.ErrPaymentMethodNotFound),
		errors.Is(err, database.ErrEmptyCart):
		return "not_found"
	default:
		return "error"
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
