package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

// PayoutStore is the Mongo-backed payout ledger.
type PayoutStore struct {
	collection *mongo.Collection
}

func NewPayoutStore(db *mongo.Database) *PayoutStore {
	return &PayoutStore{collection: db.Collection("payouts")}
}

// CoveredBookingIDs returns every booking id referenced by a non-FAILED
// payout. This set is the idempotency boundary across cycles: QUEUED
// and SENT rows cover their bookings even before settlement, FAILED
// rows do not because the money never moved.
func (s *PayoutStore) CoveredBookingIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.collection.Find(ctx,
		bson.M{"status": bson.M{"$ne": models.PayoutFailed}},
		options.Find().SetProjection(bson.M{"itemId": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch covered payouts: %v", err)
	}

	var rows []models.Payout
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode payouts: %v", err)
	}

	covered := make(map[string]struct{})
	for i := range rows {
		for _, id := range rows[i].BookingIDs() {
			covered[id] = struct{}{}
		}
	}
	return covered, nil
}

func (s *PayoutStore) Create(ctx context.Context, p *models.Payout) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to save payout: %v", err)
	}
	return nil
}

func (s *PayoutStore) setStatus(ctx context.Context, id primitive.ObjectID, status models.PayoutStatus, raw string) error {
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":      status,
		"rawResponse": raw,
		"updatedAt":   time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update payout %s: %v", id.Hex(), err)
	}
	return nil
}

func (s *PayoutStore) MarkSent(ctx context.Context, id primitive.ObjectID, raw string) error {
	return s.setStatus(ctx, id, models.PayoutSent, raw)
}

func (s *PayoutStore) MarkFailed(ctx context.Context, id primitive.ObjectID, raw string) error {
	return s.setStatus(ctx, id, models.PayoutFailed, raw)
}

// PayoutFilter narrows history queries. User scoping is enforced by the
// handler: non-admin callers always get their own id here.
type PayoutFilter struct {
	User   string
	Status models.PayoutStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

func (s *PayoutStore) List(ctx context.Context, f PayoutFilter) ([]models.Payout, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if f.User != "" {
		query["user"] = f.User
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		created := bson.M{}
		if f.From != nil {
			created["$gte"] = *f.From
		}
		if f.To != nil {
			created["$lte"] = *f.To
		}
		query["createdAt"] = created
	}

	limit := int64(f.Limit)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := int64(f.Page)
	if page < 1 {
		page = 1
	}

	cur, err := s.collection.Find(ctx, query, options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip((page-1)*limit).
		SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payouts: %v", err)
	}

	payouts := []models.Payout{}
	if err := cur.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("failed to decode payouts: %v", err)
	}
	return payouts, nil
}

// PayoutStats summarizes the ledger for administrators. StaleQueued
// counts QUEUED rows older than the given cutoff; those rows never got
// an adapter response and need manual reconciliation.
type PayoutStats struct {
	ByStatus    map[models.PayoutStatus]int64 `json:"byStatus"`
	TotalAmount float64                       `json:"totalAmount"`
	StaleQueued int64                         `json:"staleQueued"`
}

func (s *PayoutStore) Stats(ctx context.Context, staleBefore time.Time) (PayoutStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := PayoutStats{ByStatus: make(map[models.PayoutStatus]int64)}
	for _, status := range []models.PayoutStatus{models.PayoutQueued, models.PayoutSent, models.PayoutSuccess, models.PayoutFailed} {
		n, err := s.collection.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return stats, fmt.Errorf("failed to count %s payouts: %v", status, err)
		}
		stats.ByStatus[status] = n
	}

	cur, err := s.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$ne": models.PayoutFailed}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate payout totals: %v", err)
	}
	var totals []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &totals); err != nil {
		return stats, fmt.Errorf("failed to decode payout totals: %v", err)
	}
	if len(totals) > 0 {
		stats.TotalAmount = totals[0].Total
	}

	stale, err := s.collection.CountDocuments(ctx, bson.M{
		"status":    models.PayoutQueued,
		"createdAt": bson.M{"$lt": staleBefore},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to count stale queued payouts: %v", err)
	}
	stats.StaleQueued = stale
	return stats, nil
}
