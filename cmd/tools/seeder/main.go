package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// Seeds a handful of orders in every fulfilment shape the gateway cares
// about: all-physical, all-virtual, mixed and unresolvable carts, plus a
// shipping-only candidate with a non-zero shipping total.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := store.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	orders := store.NewPostgres(pool)
	seedOrders(ctx, orders)

	log.Println("Seeding completed successfully!")
}

func seedOrders(ctx context.Context, s store.Store) {
	samples := []store.Order{
		{
			ID:            100,
			Status:        store.StatusPending,
			Currency:      "BDT",
			BillingName:   "Rahim Uddin",
			BillingEmail:  "rahim@example.com",
			ShippingTotal: 60,
			OrderTotal:    1260,
			CartID:        "cart-100",
			Items: []store.LineItem{
				{ProductID: 11, IsVirtual: false, IsDownloadable: false},
				{ProductID: 12, IsVirtual: false, IsDownloadable: false},
			},
		},
		{
			ID:           101,
			Status:       store.StatusPending,
			Currency:     "BDT",
			BillingName:  "Karima Akter",
			BillingEmail: "karima@example.com",
			OrderTotal:   350,
			CartID:       "cart-101",
			Items: []store.LineItem{
				{ProductID: 21, IsVirtual: true},
				{ProductID: 22, IsDownloadable: true},
			},
		},
		{
			ID:            102,
			Status:        store.StatusPending,
			Currency:      "BDT",
			BillingName:   "Jamal Hossain",
			BillingEmail:  "jamal@example.com",
			ShippingTotal: 120,
			OrderTotal:    2120,
			CartID:        "cart-102",
			Items: []store.LineItem{
				{ProductID: 11, IsVirtual: false},
				{ProductID: 21, IsVirtual: true},
			},
		},
		{
			ID:           103,
			Status:       store.StatusPending,
			Currency:     "BDT",
			BillingName:  "Nusrat Jahan",
			BillingEmail: "nusrat@example.com",
			OrderTotal:   500,
			CartID:       "cart-103",
			Items: []store.LineItem{
				{ProductID: 0, IsVirtual: true},
			},
		},
	}

	log.Println("Seeding Orders...")
	for i := range samples {
		o := samples[i]
		if _, err := s.GetOrder(ctx, o.ID); err == nil {
			continue
		}
		if err := s.CreateOrder(ctx, &o); err != nil {
			log.Printf("Failed to seed order %d: %v", o.ID, err)
		}
	}
}
