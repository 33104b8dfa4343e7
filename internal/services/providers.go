package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

// ProviderResolver maps a booking's kind-specific provider reference to
// the receiving platform user id. New booking kinds register a resolver
// here instead of branching inside the payout engine.
type ProviderResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type hotelOwnerResolver struct {
	hotels *mongo.Collection
}

func (r hotelOwnerResolver) Resolve(ctx context.Context, ref string) (string, error) {
	hotelID, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return "", fmt.Errorf("invalid hotel id %s: %v", ref, err)
	}
	var hotel models.Hotel
	if err := r.hotels.FindOne(ctx, bson.M{"_id": hotelID}).Decode(&hotel); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", fmt.Errorf("hotel %s not found", ref)
		}
		return "", fmt.Errorf("failed to fetch hotel %s: %v", ref, err)
	}
	return hotel.Owner.Hex(), nil
}

// instructorResolver is the identity mapping: session bookings store
// the instructor's user id directly.
type instructorResolver struct{}

func (instructorResolver) Resolve(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("session booking has no instructor")
	}
	return ref, nil
}

// NewProviderRegistry wires the per-kind resolution strategies. Item
// bookings are absent on purpose: rental gear has no owning provider
// yet, so they never enter payout collection.
func NewProviderRegistry(db *mongo.Database) map[models.BookingKind]ProviderResolver {
	return map[models.BookingKind]ProviderResolver{
		models.KindHotel:   hotelOwnerResolver{hotels: db.Collection("hotels")},
		models.KindSession: instructorResolver{},
	}
}
