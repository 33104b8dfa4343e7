package db

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect initializes the MongoDB connection using the provided URI.
func Connect(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB!")
	return client, nil
}

// EnsureIndexes creates the indexes the payment pipeline depends on:
// order-id correlation lookups on every booking kind and the payout
// ledger scans.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	bookingIdx := []mongo.IndexModel{
		{Keys: bson.M{"paymentOrderId": 1}},
		{Keys: bson.M{"transactionId": 1}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "paymentStatus", Value: 1}, {Key: "paymentCompletedAt", Value: 1}}},
	}
	for _, coll := range []string{"itemBookings", "hotelBookings", "sessionBookings"} {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, bookingIdx); err != nil {
			return err
		}
	}

	payoutIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection("payouts").Indexes().CreateMany(ctx, payoutIdx); err != nil {
		return err
	}

	_, err := db.Collection("carts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"user": 1},
		Options: options.Index().SetUnique(true),
	})
	return err
}
