package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartService struct {
	collection *mongo.Collection
}

func NewCartService(db *mongo.Database) *CartService {
	return &CartService{collection: db.Collection("carts")}
}

// Clear empties the user's cart. Setting items to empty is idempotent,
// so repeating it on webhook redelivery is safe.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %s: %v", userID, err)
	}

	_, err = s.collection.UpdateOne(ctx,
		bson.M{"user": userObjID},
		bson.M{"$set": bson.M{"items": []bson.M{}, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %v", userID, err)
	}
	log.Printf("Cart cleared for user %s", userID)
	return nil
}
