package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/auth"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/config"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/db"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/handlers"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/scheduler"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	database := client.Database(cfg.DBName)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.EnsureIndexes(ctx, database); err != nil {
			log.Printf("Warning: failed to create indexes: %v", err)
		}
		cancel()
	}

	clk := clock.Real{}

	// Processor adapters
	paypal := services.NewPayPalClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret)
	revolut := services.NewRevolutClient(cfg.RevolutBaseURL, cfg.RevolutAPIKey)
	gateways := map[string]services.OrderCreator{
		"paypal":  paypal,
		"revolut": revolut,
	}

	// Services
	userService := services.NewUserService(database)
	cartService := services.NewCartService(database)
	bookingService := services.NewBookingService(database, clk, gateways, services.NewProviderRegistry(database), cfg.Currency)
	completionEngine := services.NewCompletionEngine(bookingService, cartService, clk)
	payoutStore := services.NewPayoutStore(database)
	payoutEngine := services.NewPayoutEngine(bookingService, payoutStore, userService, paypal, clk, services.PayoutConfig{
		SettlementDelay: cfg.SettlementDelay,
		MinimumPayout:   decimal.NewFromFloat(cfg.MinimumPayout),
		ProviderShare:   decimal.NewFromFloat(cfg.ProviderShare),
		Currency:        cfg.Currency,
		Note:            cfg.PayoutNote,
	})

	// Handlers
	mw := &auth.Middleware{Secret: []byte(cfg.JWTSecret)}
	userHandler := handlers.NewUserHandler(userService, []byte(cfg.JWTSecret), cfg.JWTExpire)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	webhookHandler := handlers.NewWebhookHandler(completionEngine, paypal, revolut)
	payoutHandler := handlers.NewPayoutHandler(payoutEngine, payoutStore, clk, 24*time.Hour)

	// Daily payout trigger
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	scheduler.New(payoutEngine, clk, cfg.PayoutHourUTC).Start(schedCtx)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/auth/register", userHandler.Register).Methods("POST")
	router.HandleFunc("/api/auth/login", userHandler.Login).Methods("POST")

	router.Handle("/api/bookings/item", mw.RequireAuth(http.HandlerFunc(bookingHandler.CreateItemBooking))).Methods("POST")
	router.Handle("/api/bookings/hotel", mw.RequireAuth(http.HandlerFunc(bookingHandler.CreateHotelBooking))).Methods("POST")
	router.Handle("/api/bookings/session", mw.RequireAuth(http.HandlerFunc(bookingHandler.CreateSessionBooking))).Methods("POST")

	router.HandleFunc("/api/webhooks/revolut", webhookHandler.Revolut).Methods("POST")
	router.HandleFunc("/api/webhooks/paypal", webhookHandler.PayPal).Methods("POST")

	router.Handle("/api/payouts/run", mw.RequireAdmin(http.HandlerFunc(payoutHandler.Run))).Methods("POST")
	router.Handle("/api/payouts", mw.RequireAuth(http.HandlerFunc(payoutHandler.List))).Methods("GET")
	router.Handle("/api/payouts/stats", mw.RequireAdmin(http.HandlerFunc(payoutHandler.Stats))).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
