package models

import "time"

// BookingKind tags the three booking collections that share the payment
// pipeline.
type BookingKind string

const (
	KindItem    BookingKind = "item"
	KindHotel   BookingKind = "hotel"
	KindSession BookingKind = "session"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingFailed    BookingStatus = "failed"
	BookingCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PayableBooking is the uniform view the completion and payout engines
// operate on. ProviderRef is the kind-specific reference a provider
// resolver turns into the receiving user id: a hotel id for hotel
// bookings, an instructor user id for session bookings, empty for item
// bookings (no owner to pay).
type PayableBooking struct {
	ID                 string
	Kind               BookingKind
	UserID             string
	Amount             float64
	ProviderRef        string
	ProviderID         string
	PaymentCompletedAt time.Time
}
