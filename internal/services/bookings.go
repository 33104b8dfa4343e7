package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownGateway = errors.New("unknown payment gateway")
)

// rentalSurcharge is the fixed markup applied to rented (not purchased)
// items.
var rentalSurcharge = decimal.NewFromFloat(0.12)

// nightsBetween counts whole 24h periods between two dates, minimum 1.
func nightsBetween(from, to time.Time) int {
	n := int(to.Sub(from).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

func purchaseLine(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}

func rentalLine(rentalPrice float64, qty, days int) decimal.Decimal {
	line := decimal.NewFromFloat(rentalPrice).
		Mul(decimal.NewFromInt(int64(qty))).
		Mul(decimal.NewFromInt(int64(days)))
	return line.Add(line.Mul(rentalSurcharge))
}

func hotelAmount(pricePerNight float64, rooms, nights int) decimal.Decimal {
	return decimal.NewFromFloat(pricePerNight).
		Mul(decimal.NewFromInt(int64(rooms))).
		Mul(decimal.NewFromInt(int64(nights)))
}

// bookingCollections is the fixed search order for order-id lookups.
var bookingCollections = []struct {
	kind models.BookingKind
	name string
}{
	{models.KindItem, "itemBookings"},
	{models.KindHotel, "hotelBookings"},
	{models.KindSession, "sessionBookings"},
}

// BookingMatch is the slim view of a booking the completion engine
// works with.
type BookingMatch struct {
	Kind          models.BookingKind
	ID            string
	UserID        string
	Status        models.BookingStatus
	PaymentStatus models.PaymentStatus
}

// BookingService owns the three booking collections: order initiation,
// order-id correlation lookups, payment state transitions and payout
// collection.
type BookingService struct {
	db        *mongo.Database
	clock     clock.Clock
	gateways  map[string]OrderCreator
	resolvers map[models.BookingKind]ProviderResolver
	currency  string
}

func NewBookingService(db *mongo.Database, clk clock.Clock, gateways map[string]OrderCreator, resolvers map[models.BookingKind]ProviderResolver, currency string) *BookingService {
	return &BookingService{
		db:        db,
		clock:     clk,
		gateways:  gateways,
		resolvers: resolvers,
		currency:  currency,
	}
}

func (s *BookingService) collection(kind models.BookingKind) *mongo.Collection {
	for _, c := range bookingCollections {
		if c.kind == kind {
			return s.db.Collection(c.name)
		}
	}
	return nil
}

// FindByOrderID searches all booking kinds for the processor order id,
// in a fixed order. Kinds are mutually exclusive by id in practice, but
// every match is returned and processed independently.
func (s *BookingService) FindByOrderID(ctx context.Context, orderID string) ([]BookingMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"paymentOrderId": orderID},
		{"transactionId": orderID},
	}}

	var matches []BookingMatch
	for _, c := range bookingCollections {
		cur, err := s.db.Collection(c.name).Find(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %v", c.name, err)
		}
		var docs []struct {
			ID            primitive.ObjectID   `bson:"_id"`
			User          primitive.ObjectID   `bson:"user"`
			Status        models.BookingStatus `bson:"status"`
			PaymentStatus models.PaymentStatus `bson:"paymentStatus"`
		}
		if err := cur.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %v", c.name, err)
		}
		for _, d := range docs {
			matches = append(matches, BookingMatch{
				Kind:          c.kind,
				ID:            d.ID.Hex(),
				UserID:        d.User.Hex(),
				Status:        d.Status,
				PaymentStatus: d.PaymentStatus,
			})
		}
	}
	return matches, nil
}

// ApplyCompletion records a completed payment. With confirm set the
// booking is also confirmed (full order completion); without it only
// the payment side moves (two-phase authorisation). paymentCompletedAt
// is written exactly once: the first branch only matches a document
// whose payment is not yet completed, and the second branch confirms a
// payment-completed booking without touching the timestamp, so an
// authorisation followed by the finalizing completion still lands.
func (s *BookingService) ApplyCompletion(ctx context.Context, kind models.BookingKind, id string, confirm bool, now time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid booking id %s: %v", id, err)
	}

	set := bson.M{
		"paymentStatus":      models.PaymentCompleted,
		"paymentCompletedAt": now,
		"updatedAt":          now,
	}
	if confirm {
		set["status"] = models.BookingConfirmed
	}

	filter := bson.M{
		"_id":           objID,
		"paymentStatus": bson.M{"$ne": models.PaymentCompleted},
	}
	res, err := s.collection(kind).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s booking %s: %v", kind, id, err)
	}
	if res.MatchedCount > 0 || !confirm {
		return nil
	}

	// Payment was already recorded, by an earlier authorisation or a
	// concurrent delivery. The confirmation can still move.
	_, err = s.collection(kind).UpdateOne(ctx, bson.M{
		"_id":    objID,
		"status": bson.M{"$ne": models.BookingConfirmed},
	}, bson.M{"$set": bson.M{
		"status":    models.BookingConfirmed,
		"updatedAt": now,
	}})
	if err != nil {
		return fmt.Errorf("failed to confirm %s booking %s: %v", kind, id, err)
	}
	return nil
}

// ApplyFailure marks the booking failed. A completed payment is never
// moved backward.
func (s *BookingService) ApplyFailure(ctx context.Context, kind models.BookingKind, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid booking id %s: %v", id, err)
	}

	filter := bson.M{
		"_id":           objID,
		"paymentStatus": bson.M{"$ne": models.PaymentCompleted},
	}
	set := bson.M{
		"paymentStatus": models.PaymentFailed,
		"status":        models.BookingFailed,
		"updatedAt":     s.clock.Now(),
	}
	if _, err := s.collection(kind).UpdateOne(ctx, filter, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to fail %s booking %s: %v", kind, id, err)
	}
	return nil
}

// CollectPayable returns confirmed, fully-paid bookings whose payment
// completed before the cutoff, with the receiving provider resolved.
// Kinds without a registered resolver (items) are excluded by design.
func (s *BookingService) CollectPayable(ctx context.Context, completedBefore time.Time) ([]models.PayableBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"status":             models.BookingConfirmed,
		"paymentStatus":      models.PaymentCompleted,
		"paymentCompletedAt": bson.M{"$lt": completedBefore},
	}

	var payable []models.PayableBooking
	for _, c := range bookingCollections {
		resolver, ok := s.resolvers[c.kind]
		if !ok {
			continue
		}

		cur, err := s.db.Collection(c.name).Find(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to collect %s: %v", c.name, err)
		}

		var batch []models.PayableBooking
		switch c.kind {
		case models.KindHotel:
			var docs []models.HotelBooking
			if err := cur.All(ctx, &docs); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %v", c.name, err)
			}
			for i := range docs {
				batch = append(batch, docs[i].ToPayable())
			}
		case models.KindSession:
			var docs []models.SessionBooking
			if err := cur.All(ctx, &docs); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %v", c.name, err)
			}
			for i := range docs {
				batch = append(batch, docs[i].ToPayable())
			}
		}

		for _, p := range batch {
			providerID, err := resolver.Resolve(ctx, p.ProviderRef)
			if err != nil {
				// Unresolvable bookings stay uncovered and are
				// reconsidered next cycle.
				log.Printf("Provider resolution failed for %s booking %s: %v", c.kind, p.ID, err)
				continue
			}
			p.ProviderID = providerID
			payable = append(payable, p)
		}
	}
	return payable, nil
}

func (s *BookingService) gateway(name string) (OrderCreator, error) {
	g, ok := s.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return g, nil
}

// storeOrderID returns the bson fields carrying the processor order id.
// Revolut ids live in paymentOrderId, PayPal ids in transactionId; both
// are correlation keys for webhook lookups.
func storeOrderID(gateway string, ref OrderRef) bson.M {
	if gateway == "paypal" {
		return bson.M{"transactionId": ref.OrderID}
	}
	return bson.M{"paymentOrderId": ref.OrderID}
}

type CreateItemBookingInput struct {
	Gateway string `json:"gateway"`
	Items   []struct {
		ItemID   string `json:"itemId"`
		Quantity int    `json:"quantity"`
		Purchase bool   `json:"purchase"`
	} `json:"items"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// CreateItemBooking prices the cart (rentals carry the fixed surcharge,
// purchases go at flat unit price), requests a processor order and
// persists the pending booking with the order id before returning, so
// the record exists before any webhook can reference it.
func (s *BookingService) CreateItemBooking(ctx context.Context, userID string, in CreateItemBookingInput) (*models.ItemBooking, OrderRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("invalid user id: %v", err)
	}
	if len(in.Items) == 0 {
		return nil, OrderRef{}, fmt.Errorf("no items in booking")
	}

	rental := false
	for _, it := range in.Items {
		if !it.Purchase {
			rental = true
		}
	}
	days := 1
	if rental {
		if !in.EndDate.After(in.StartDate) {
			return nil, OrderRef{}, fmt.Errorf("end date must be after start date")
		}
		days = nightsBetween(in.StartDate, in.EndDate)
	}

	gateway, err := s.gateway(in.Gateway)
	if err != nil {
		return nil, OrderRef{}, err
	}

	amount := decimal.Zero
	booked := make([]models.BookedItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, OrderRef{}, fmt.Errorf("quantity must be positive")
		}
		itemObjID, err := primitive.ObjectIDFromHex(it.ItemID)
		if err != nil {
			return nil, OrderRef{}, fmt.Errorf("invalid item id %s: %v", it.ItemID, err)
		}
		var item models.Item
		if err := s.db.Collection("items").FindOne(ctx, bson.M{"_id": itemObjID}).Decode(&item); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, OrderRef{}, fmt.Errorf("item %s: %w", it.ItemID, ErrNotFound)
			}
			return nil, OrderRef{}, fmt.Errorf("failed to fetch item %s: %v", it.ItemID, err)
		}

		if it.Purchase {
			amount = amount.Add(purchaseLine(item.Price, it.Quantity))
		} else {
			amount = amount.Add(rentalLine(item.RentalPrice, it.Quantity, days))
		}
		booked = append(booked, models.BookedItem{Item: itemObjID, Quantity: it.Quantity, Purchase: it.Purchase})
	}
	if !amount.IsPositive() {
		return nil, OrderRef{}, fmt.Errorf("amount must be positive")
	}

	ref, err := gateway.CreateOrder(ctx, amount, s.currency, "Adventure gear booking")
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("order creation failed: %v", err)
	}

	now := s.clock.Now()
	booking := &models.ItemBooking{
		ID:            primitive.NewObjectID(),
		User:          userObjID,
		Items:         booked,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Amount:        amount.Round(2).InexactFloat64(),
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc := bson.M{
		"_id":           booking.ID,
		"user":          booking.User,
		"items":         booking.Items,
		"startDate":     booking.StartDate,
		"endDate":       booking.EndDate,
		"amount":        booking.Amount,
		"status":        booking.Status,
		"paymentStatus": booking.PaymentStatus,
		"createdAt":     now,
		"updatedAt":     now,
	}
	for k, v := range storeOrderID(in.Gateway, ref) {
		doc[k] = v
	}
	if _, err := s.db.Collection("itemBookings").InsertOne(ctx, doc); err != nil {
		return nil, OrderRef{}, fmt.Errorf("failed to save booking: %v", err)
	}
	if in.Gateway == "paypal" {
		booking.TransactionID = ref.OrderID
	} else {
		booking.PaymentOrderID = ref.OrderID
	}

	log.Printf("Item booking created: ID=%s, order=%s, amount=%.2f", booking.ID.Hex(), ref.OrderID, booking.Amount)
	return booking, ref, nil
}

type CreateHotelBookingInput struct {
	Gateway  string    `json:"gateway"`
	HotelID  string    `json:"hotelId"`
	Rooms    int       `json:"rooms"`
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

func (s *BookingService) CreateHotelBooking(ctx context.Context, userID string, in CreateHotelBookingInput) (*models.HotelBooking, OrderRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("invalid user id: %v", err)
	}
	if in.Rooms <= 0 {
		return nil, OrderRef{}, fmt.Errorf("rooms must be positive")
	}
	if !in.CheckOut.After(in.CheckIn) {
		return nil, OrderRef{}, fmt.Errorf("check-out must be after check-in")
	}
	nights := nightsBetween(in.CheckIn, in.CheckOut)

	gateway, err := s.gateway(in.Gateway)
	if err != nil {
		return nil, OrderRef{}, err
	}

	hotelObjID, err := primitive.ObjectIDFromHex(in.HotelID)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("invalid hotel id: %v", err)
	}
	var hotel models.Hotel
	if err := s.db.Collection("hotels").FindOne(ctx, bson.M{"_id": hotelObjID}).Decode(&hotel); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, OrderRef{}, fmt.Errorf("hotel %s: %w", in.HotelID, ErrNotFound)
		}
		return nil, OrderRef{}, fmt.Errorf("failed to fetch hotel: %v", err)
	}

	amount := hotelAmount(hotel.PricePerNight, in.Rooms, nights)
	if !amount.IsPositive() {
		return nil, OrderRef{}, fmt.Errorf("amount must be positive")
	}

	ref, err := gateway.CreateOrder(ctx, amount, s.currency, "Hotel booking: "+hotel.Name)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("order creation failed: %v", err)
	}

	now := s.clock.Now()
	booking := &models.HotelBooking{
		ID:            primitive.NewObjectID(),
		User:          userObjID,
		Hotel:         hotelObjID,
		Rooms:         in.Rooms,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		Amount:        amount.Round(2).InexactFloat64(),
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc := bson.M{
		"_id":           booking.ID,
		"user":          booking.User,
		"hotel":         booking.Hotel,
		"rooms":         booking.Rooms,
		"checkIn":       booking.CheckIn,
		"checkOut":      booking.CheckOut,
		"amount":        booking.Amount,
		"status":        booking.Status,
		"paymentStatus": booking.PaymentStatus,
		"createdAt":     now,
		"updatedAt":     now,
	}
	for k, v := range storeOrderID(in.Gateway, ref) {
		doc[k] = v
	}
	if _, err := s.db.Collection("hotelBookings").InsertOne(ctx, doc); err != nil {
		return nil, OrderRef{}, fmt.Errorf("failed to save booking: %v", err)
	}
	if in.Gateway == "paypal" {
		booking.TransactionID = ref.OrderID
	} else {
		booking.PaymentOrderID = ref.OrderID
	}

	log.Printf("Hotel booking created: ID=%s, order=%s, amount=%.2f", booking.ID.Hex(), ref.OrderID, booking.Amount)
	return booking, ref, nil
}

type CreateSessionBookingInput struct {
	Gateway      string `json:"gateway"`
	SessionID    string `json:"sessionId"`
	Participants int    `json:"participants"`
}

func (s *BookingService) CreateSessionBooking(ctx context.Context, userID string, in CreateSessionBookingInput) (*models.SessionBooking, OrderRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("invalid user id: %v", err)
	}
	if in.Participants <= 0 {
		return nil, OrderRef{}, fmt.Errorf("participants must be positive")
	}

	gateway, err := s.gateway(in.Gateway)
	if err != nil {
		return nil, OrderRef{}, err
	}

	sessionObjID, err := primitive.ObjectIDFromHex(in.SessionID)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("invalid session id: %v", err)
	}
	var session models.Session
	if err := s.db.Collection("sessions").FindOne(ctx, bson.M{"_id": sessionObjID}).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, OrderRef{}, fmt.Errorf("session %s: %w", in.SessionID, ErrNotFound)
		}
		return nil, OrderRef{}, fmt.Errorf("failed to fetch session: %v", err)
	}

	amount := decimal.NewFromFloat(session.Price).Mul(decimal.NewFromInt(int64(in.Participants)))
	if !amount.IsPositive() {
		return nil, OrderRef{}, fmt.Errorf("amount must be positive")
	}

	ref, err := gateway.CreateOrder(ctx, amount, s.currency, "Session booking: "+session.Title)
	if err != nil {
		return nil, OrderRef{}, fmt.Errorf("order creation failed: %v", err)
	}

	now := s.clock.Now()
	booking := &models.SessionBooking{
		ID:            primitive.NewObjectID(),
		User:          userObjID,
		Session:       sessionObjID,
		Instructor:    session.Instructor,
		Participants:  in.Participants,
		Amount:        amount.Round(2).InexactFloat64(),
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc := bson.M{
		"_id":           booking.ID,
		"user":          booking.User,
		"session":       booking.Session,
		"instructor":    booking.Instructor,
		"participants":  booking.Participants,
		"amount":        booking.Amount,
		"status":        booking.Status,
		"paymentStatus": booking.PaymentStatus,
		"createdAt":     now,
		"updatedAt":     now,
	}
	for k, v := range storeOrderID(in.Gateway, ref) {
		doc[k] = v
	}
	if _, err := s.db.Collection("sessionBookings").InsertOne(ctx, doc); err != nil {
		return nil, OrderRef{}, fmt.Errorf("failed to save booking: %v", err)
	}
	if in.Gateway == "paypal" {
		booking.TransactionID = ref.OrderID
	} else {
		booking.PaymentOrderID = ref.OrderID
	}

	log.Printf("Session booking created: ID=%s, order=%s, amount=%.2f", booking.ID.Hex(), ref.OrderID, booking.Amount)
	return booking, ref, nil
}
