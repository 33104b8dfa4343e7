package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type completer interface {
	Complete(ctx context.Context, orderID string, event services.Event) (services.CompletionResult, error)
}

type orderCapturer interface {
	CaptureOrder(ctx context.Context, orderID string) error
}

type orderStateGetter interface {
	GetOrderState(ctx context.Context, orderID string) (string, error)
}

// WebhookHandler ingests asynchronous payment notifications from both
// processors and normalizes their vocabularies before dispatch.
// Deliveries are at-least-once and unordered; anything well-formed but
// irrelevant is acknowledged with 200 so the processors stop retrying.
type WebhookHandler struct {
	engine   completer
	capturer orderCapturer
	verifier orderStateGetter
}

func NewWebhookHandler(engine completer, capturer orderCapturer, verifier orderStateGetter) *WebhookHandler {
	return &WebhookHandler{engine: engine, capturer: capturer, verifier: verifier}
}

// revolutEvents maps the Revolut Merchant webhook vocabulary onto the
// normalized lifecycle set.
var revolutEvents = map[string]services.Event{
	"ORDER_COMPLETED":      services.OrderCompleted,
	"ORDER_AUTHORISED":     services.OrderAuthorised,
	"ORDER_PAYMENT_FAILED": services.OrderFailed,
}

func (h *WebhookHandler) Revolut(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Event   string `json:"event"`
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid webhook payload"}`, http.StatusBadRequest)
		return
	}
	if payload.Event == "" || payload.OrderID == "" {
		http.Error(w, `{"error":"event and order_id are required"}`, http.StatusBadRequest)
		return
	}

	event, ok := revolutEvents[payload.Event]
	if !ok {
		http.Error(w, `{"error":"unknown event type"}`, http.StatusBadRequest)
		return
	}

	// The payload carries no signature, so a completion claim is checked
	// against the merchant API before any booking state moves.
	if event == services.OrderCompleted && h.verifier != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		state, err := h.verifier.GetOrderState(ctx, payload.OrderID)
		cancel()
		if err != nil {
			log.Printf("Order state verification failed for %s: %v", payload.OrderID, err)
			http.Error(w, `{"error":"order verification failed"}`, http.StatusInternalServerError)
			return
		}
		if state != "completed" {
			log.Printf("Revolut order %s is %s, ignoring completion delivery", payload.OrderID, state)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	h.dispatch(w, r, payload.OrderID, event)
}

// paypalEvents covers the order- and capture-level notifications the
// pipeline acts on. PayPal sends many other event types; those are
// acknowledged and ignored.
var paypalEvents = map[string]services.Event{
	"CHECKOUT.ORDER.COMPLETED":  services.OrderCompleted,
	"PAYMENT.CAPTURE.COMPLETED": services.OrderCompleted,
	"CHECKOUT.ORDER.APPROVED":   services.OrderAuthorised,
	"PAYMENT.CAPTURE.DENIED":    services.OrderFailed,
}

func (h *WebhookHandler) PayPal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EventType string `json:"event_type"`
		Resource  struct {
			ID                string `json:"id"`
			SupplementaryData struct {
				RelatedIDs struct {
					OrderID string `json:"order_id"`
				} `json:"related_ids"`
			} `json:"supplementary_data"`
		} `json:"resource"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid webhook payload"}`, http.StatusBadRequest)
		return
	}
	if payload.EventType == "" || payload.Resource.ID == "" {
		http.Error(w, `{"error":"event_type and resource.id are required"}`, http.StatusBadRequest)
		return
	}

	event, ok := paypalEvents[payload.EventType]
	if !ok {
		log.Printf("Ignoring PayPal event %s", payload.EventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Order-level events carry the checkout order id as resource.id.
	// Capture-level events carry the capture id there; the order id the
	// bookings are correlated by sits in supplementary_data.
	orderID := payload.Resource.ID
	if strings.HasPrefix(payload.EventType, "PAYMENT.CAPTURE.") &&
		payload.Resource.SupplementaryData.RelatedIDs.OrderID != "" {
		orderID = payload.Resource.SupplementaryData.RelatedIDs.OrderID
	}

	h.dispatch(w, r, orderID, event)

	// An approved order still holds the funds; capturing here is what
	// eventually produces the capture-completed delivery. Best effort
	// and off the request goroutine: the approval is already recorded
	// and acknowledged, and capture is safe to repeat on the next
	// APPROVED redelivery.
	if event == services.OrderAuthorised && h.capturer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.capturer.CaptureOrder(ctx, orderID); err != nil {
				log.Printf("Capture failed for order %s: %v", orderID, err)
			}
		}()
	}
}

func (h *WebhookHandler) dispatch(w http.ResponseWriter, r *http.Request, orderID string, event services.Event) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.engine.Complete(ctx, orderID, event)
	if err != nil {
		if errors.Is(err, services.ErrUnknownEvent) {
			http.Error(w, `{"error":"unknown event type"}`, http.StatusBadRequest)
			return
		}
		// A processing error must surface as non-2xx so the processor
		// redelivers; completion is idempotent, so redelivery is safe.
		log.Printf("Webhook processing failed for order %s: %v", orderID, err)
		http.Error(w, `{"error":"webhook processing failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
