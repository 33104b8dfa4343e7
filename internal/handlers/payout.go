package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/auth"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type cycleRunner interface {
	RunPayoutCycle(ctx context.Context) (services.CycleSummary, error)
}

type payoutReader interface {
	List(ctx context.Context, f services.PayoutFilter) ([]models.Payout, error)
	Stats(ctx context.Context, staleBefore time.Time) (services.PayoutStats, error)
}

type PayoutHandler struct {
	engine     cycleRunner
	store      payoutReader
	clock      clock.Clock
	staleAfter time.Duration
}

func NewPayoutHandler(engine cycleRunner, store payoutReader, clk clock.Clock, staleAfter time.Duration) *PayoutHandler {
	return &PayoutHandler{engine: engine, store: store, clock: clk, staleAfter: staleAfter}
}

// Run triggers one payout cycle synchronously. Admin only; the engine
// shares its run lock with the scheduled trigger.
func (h *PayoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	summary, err := h.engine.RunPayoutCycle(ctx)
	if err != nil {
		log.Printf("Administrative payout cycle failed: %v", err)
		http.Error(w, `{"error":"payout cycle failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// List returns payout history. Admins see everything; other callers are
// scoped to their own payouts regardless of the query.
func (h *PayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := services.PayoutFilter{
		Status: models.PayoutStatus(q.Get("status")),
	}
	if claims.Role == models.RoleAdmin {
		filter.User = q.Get("user")
	} else {
		filter.User = claims.Sub
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, `{"error":"invalid from date"}`, http.StatusBadRequest)
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, `{"error":"invalid to date"}`, http.StatusBadRequest)
			return
		}
		filter.To = &t
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	payouts, err := h.store.List(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list payouts: %v", err)
		http.Error(w, `{"error":"failed to fetch payouts"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payouts)
}

func (h *PayoutHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), h.clock.Now().Add(-h.staleAfter))
	if err != nil {
		log.Printf("Failed to compute payout stats: %v", err)
		http.Error(w, `{"error":"failed to compute stats"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
