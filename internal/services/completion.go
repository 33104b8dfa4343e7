package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

// Event is the normalized payment lifecycle vocabulary. Both
// processors' webhook names are mapped onto this set before dispatch.
type Event string

const (
	OrderCompleted  Event = "ORDER_COMPLETED"
	OrderAuthorised Event = "ORDER_AUTHORISED"
	OrderFailed     Event = "ORDER_FAILED"
)

// ErrUnknownEvent marks a lifecycle event outside the normalized set;
// the HTTP layer maps it to a 4xx.
var ErrUnknownEvent = errors.New("unknown lifecycle event")

type bookingFinder interface {
	FindByOrderID(ctx context.Context, orderID string) ([]BookingMatch, error)
	ApplyCompletion(ctx context.Context, kind models.BookingKind, id string, confirm bool, now time.Time) error
	ApplyFailure(ctx context.Context, kind models.BookingKind, id string) error
}

type cartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// CompletionResult reports what a webhook delivery did.
type CompletionResult struct {
	Matches          int            `json:"matches"`
	Updated          int            `json:"updated"`
	AlreadyCompleted int            `json:"alreadyCompleted"`
	Bookings         []BookingMatch `json:"-"`
}

// CompletionEngine turns processor lifecycle events into booking state
// transitions. Deliveries are at-least-once and unordered, so every
// write here is idempotent and state is re-read on each delivery.
type CompletionEngine struct {
	bookings bookingFinder
	carts    cartClearer
	clock    clock.Clock
}

func NewCompletionEngine(bookings bookingFinder, carts cartClearer, clk clock.Clock) *CompletionEngine {
	return &CompletionEngine{bookings: bookings, carts: carts, clock: clk}
}

// Complete looks up the booking for the processor order id and applies
// the event. An order id with no matching booking is a successful
// no-op: the processor retries aggressively on non-2xx and an unknown
// id cannot be told apart from an irrelevant one.
func (e *CompletionEngine) Complete(ctx context.Context, orderID string, event Event) (CompletionResult, error) {
	switch event {
	case OrderCompleted, OrderAuthorised, OrderFailed:
	default:
		return CompletionResult{}, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	matches, err := e.bookings.FindByOrderID(ctx, orderID)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("lookup failed for order %s: %v", orderID, err)
	}
	if len(matches) == 0 {
		log.Printf("No booking matches order %s, acknowledging without change", orderID)
		return CompletionResult{}, nil
	}

	result := CompletionResult{Matches: len(matches), Bookings: matches}
	for _, m := range matches {
		if err := e.apply(ctx, m, event, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (e *CompletionEngine) apply(ctx context.Context, m BookingMatch, event Event, result *CompletionResult) error {
	switch event {
	case OrderCompleted:
		// A booking is a duplicate only when both sides are terminal.
		// Payment completed with the booking still pending means an
		// authorisation ran first; the completion must still confirm.
		if m.PaymentStatus == models.PaymentCompleted && m.Status == models.BookingConfirmed {
			result.AlreadyCompleted++
			log.Printf("Booking %s (%s) already completed, skipping state write", m.ID, m.Kind)
		} else {
			if err := e.bookings.ApplyCompletion(ctx, m.Kind, m.ID, true, e.clock.Now()); err != nil {
				return err
			}
			result.Updated++
		}
		// The cart clear runs on every delivery, including redelivery
		// after a crash between the state write and the side effect.
		// Clearing is itself idempotent, which keeps that safe.
		if m.Kind == models.KindItem {
			if err := e.carts.Clear(ctx, m.UserID); err != nil {
				return fmt.Errorf("cart clear failed for booking %s: %v", m.ID, err)
			}
		}

	case OrderAuthorised:
		if m.PaymentStatus == models.PaymentCompleted {
			result.AlreadyCompleted++
			return nil
		}
		// Two-phase capture: funds confirmed, booking workflow not yet
		// finalized.
		if err := e.bookings.ApplyCompletion(ctx, m.Kind, m.ID, false, e.clock.Now()); err != nil {
			return err
		}
		result.Updated++

	case OrderFailed:
		if m.PaymentStatus == models.PaymentCompleted {
			log.Printf("Ignoring failure event for completed booking %s (%s)", m.ID, m.Kind)
			return nil
		}
		if err := e.bookings.ApplyFailure(ctx, m.Kind, m.ID); err != nil {
			return err
		}
		result.Updated++
	}
	return nil
}
