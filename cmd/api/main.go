package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/rahmah/go-bakery-store/internal/config"
	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	setupLogger(cfg.LogLevel)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	defer db.Close()

	log.Info("connected to database")

	m := metrics.NewStoreMetrics()

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handleHealth(db))
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/users", handleUsers(db))
	mux.HandleFunc("/users/", handleUserByID(db))
	mux.HandleFunc("/products", handleProducts(db))
	mux.HandleFunc("/products/", handleProductByID(db))
	mux.HandleFunc("/shipping-methods", handleShippingMethods(db))
	mux.HandleFunc("/payment-methods", handlePaymentMethods(db))

	mux.HandleFunc("/cart", requireUser(db, handleCart(db)))
	mux.HandleFunc("/cart/items", requireUser(db, handleCartItems(db, m)))
	mux.HandleFunc("/cart/items/", requireUser(db, handleCartItemByID(db, m)))
	mux.HandleFunc("/checkout", requireUser(db, handleCheckout(db, m)))
	mux.HandleFunc("/orders", requireUser(db, handleOrders(db)))
	mux.HandleFunc("/orders/", requireUser(db, handleOrderByID(db)))
	mux.HandleFunc("/addresses", requireUser(db, handleAddresses(db)))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withRequestLog(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := server.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
